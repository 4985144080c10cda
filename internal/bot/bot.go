// Package bot connects the amount extractor to Discord.
package bot

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// ConnectionMetrics tracks the session state
type ConnectionMetrics interface {
	SetConnected(connected bool)
}

// Bot owns the Discord session and its event handlers
type Bot struct {
	session   *discordgo.Session
	handler   *Handler
	metrics   ConnectionMetrics
	connected atomic.Bool
	ctx       context.Context
}

// New creates a bot for token. The session is not opened until Open.
func New(token string, handler *Handler, metrics ConnectionMetrics) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session: session,
		handler: handler,
		metrics: metrics,
		ctx:     context.Background(),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onDisconnect)
	session.AddHandler(b.onMessageCreate)

	return b, nil
}

// Open connects to the gateway. ctx is the parent of every message request
// and should be cancelled on shutdown.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = log.Logger.WithContext(ctx)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	b.setConnected(false)
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

// Connected reports whether the gateway session is ready
func (b *Bot) Connected() bool {
	return b.connected.Load()
}

func (b *Bot) setConnected(v bool) {
	b.connected.Store(v)
	if b.metrics != nil {
		b.metrics.SetConnected(v)
	}
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.setConnected(true)
	log.Info().Str("user", r.User.String()).Msgf("%s でログインしました！", r.User.String())
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.setConnected(false)
	log.Warn().Msg("Discord session disconnected")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("message_id", m.ID).Msg("Message handler panicked")
		}
	}()

	b.handler.Handle(b.ctx, &discordChat{session: s}, toInbound(m.Message))
}

// toInbound converts a Discord message
func toInbound(m *discordgo.Message) *Inbound {
	in := &Inbound{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
	}
	if m.Author != nil {
		in.AuthorID = m.Author.ID
		in.AuthorIsBot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		in.Attachments = append(in.Attachments, Attachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return in
}

// discordChat implements Chat on a live session
type discordChat struct {
	session *discordgo.Session
}

func reference(msg *Inbound) *discordgo.MessageReference {
	return &discordgo.MessageReference{
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
	}
}

func (c *discordChat) Reply(msg *Inbound, content string) (string, error) {
	sent, err := c.session.ChannelMessageSendReply(msg.ChannelID, content, reference(msg))
	if err != nil {
		return "", fmt.Errorf("reply failed: %w", err)
	}
	return sent.ID, nil
}

func (c *discordChat) ReplyEmbed(msg *Inbound, embed *discordgo.MessageEmbed) error {
	if _, err := c.session.ChannelMessageSendEmbedReply(msg.ChannelID, embed, reference(msg)); err != nil {
		return fmt.Errorf("embed reply failed: %w", err)
	}
	return nil
}

func (c *discordChat) Edit(channelID, messageID, content string) error {
	if _, err := c.session.ChannelMessageEdit(channelID, messageID, content); err != nil {
		return fmt.Errorf("edit failed: %w", err)
	}
	return nil
}

func (c *discordChat) Send(channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

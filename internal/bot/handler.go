package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/facturaIA/amount-extractor-bot/internal/observability"
	"github.com/facturaIA/amount-extractor-bot/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotImage is returned for attachments whose content type is not an image
var ErrNotImage = errors.New("attachment is not an image")

// Inbound is a chat message as seen by the handler
type Inbound struct {
	ID          string
	ChannelID   string
	GuildID     string
	AuthorID    string
	AuthorIsBot bool
	Content     string
	Attachments []Attachment
}

// Attachment is a file attached to an inbound message
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
	Size        int
}

// IsImage reports whether the attachment declares an image content type
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

// Chat sends messages back to the platform
type Chat interface {
	Reply(msg *Inbound, content string) (string, error)
	ReplyEmbed(msg *Inbound, embed *discordgo.MessageEmbed) error
	Edit(channelID, messageID, content string) error
	Send(channelID, content string) error
}

// Extractor runs the extraction pipeline on image bytes
type Extractor interface {
	Process(ctx context.Context, imageData []byte) service.Extraction
}

// Metrics receives request outcomes
type Metrics interface {
	ObserveRequest(source, outcome string)
}

// Handler reacts to inbound messages
type Handler struct {
	extractor    Extractor
	fetcher      Fetcher
	metrics      Metrics
	timeout      time.Duration
	helpCommands map[string]struct{}
	now          func() time.Time
}

// NewHandler creates a message handler
func NewHandler(extractor Extractor, fetcher Fetcher, metrics Metrics, timeout time.Duration, helpCommands []string) *Handler {
	commands := make(map[string]struct{}, len(helpCommands))
	for _, c := range helpCommands {
		commands[c] = struct{}{}
	}
	return &Handler{
		extractor:    extractor,
		fetcher:      fetcher,
		metrics:      metrics,
		timeout:      timeout,
		helpCommands: commands,
		now:          time.Now,
	}
}

// Handle processes one inbound message. Every failure is logged and reported
// to the user where possible; none is returned.
func (h *Handler) Handle(ctx context.Context, chat Chat, msg *Inbound) {
	if msg.AuthorIsBot {
		return
	}

	logger := zerolog.Ctx(ctx).With().
		Str("request_id", uuid.NewString()).
		Str("channel_id", msg.ChannelID).
		Str("message_id", msg.ID).
		Logger()
	ctx = logger.WithContext(ctx)

	// Only the first attachment is considered
	if len(msg.Attachments) > 0 {
		if att := msg.Attachments[0]; att.IsImage() {
			h.handleImage(ctx, chat, msg, att)
		} else {
			logger.Debug().Str("content_type", att.ContentType).Err(ErrNotImage).Msg("Ignoring attachment")
		}
	}

	if _, ok := h.helpCommands[strings.TrimSpace(msg.Content)]; ok {
		if err := chat.ReplyEmbed(msg, helpEmbed(h.now())); err != nil {
			logger.Error().Err(err).Msg("Failed to send help")
		}
	}
}

func (h *Handler) handleImage(ctx context.Context, chat Chat, msg *Inbound, att Attachment) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("filename", att.Filename).Int("size", att.Size).Msg("Processing image attachment")

	outcome, err := h.extract(ctx, chat, msg, att)
	if err != nil {
		logger.Error().Err(err).Msg("Image processing failed")
		outcome = observability.OutcomeError
		if _, rerr := chat.Reply(msg, msgError); rerr != nil {
			logger.Error().Err(rerr).Msg("Failed to send error reply")
		}
	}

	if h.metrics != nil {
		h.metrics.ObserveRequest("discord", outcome)
	}
}

// extract runs one request and returns its outcome. Chat calls use ctx rather
// than the request deadline so that a timed out run can still be reported.
func (h *Handler) extract(ctx context.Context, chat Chat, msg *Inbound, att Attachment) (string, error) {
	processingID, err := chat.Reply(msg, msgProcessing)
	if err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	data, err := h.fetcher.Fetch(reqCtx, att.URL)
	if err != nil {
		return "", err
	}

	result := h.extractor.Process(reqCtx, data)
	if !result.Found {
		if reqCtx.Err() != nil {
			zerolog.Ctx(ctx).Warn().Err(reqCtx.Err()).Msg("Recognition stopped before all profiles ran")
		}
		if err := chat.Edit(msg.ChannelID, processingID, failureMessage(result.Attempts)); err != nil {
			return "", err
		}
		return observability.OutcomeNoAmount, nil
	}

	if err := chat.Edit(msg.ChannelID, processingID, successMessage(result.Amount)); err != nil {
		return "", err
	}
	if err := chat.Send(msg.ChannelID, copyMessage(result.Amount)); err != nil {
		return "", err
	}
	return observability.OutcomeAmount, nil
}

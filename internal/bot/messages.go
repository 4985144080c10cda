package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/facturaIA/amount-extractor-bot/internal/amount"
	"github.com/facturaIA/amount-extractor-bot/internal/models"
)

const (
	msgProcessing = "🔍 画像を高精度で解析中です..."
	msgError      = "画像の処理中にエラーが発生しました。画像形式やサイズを確認してください。"

	// debugTextLimit is how many characters of OCR text each diagnostic line shows
	debugTextLimit = 100
)

// successMessage is the edit applied to the processing message when an amount is found
func successMessage(total int64) string {
	half := amount.Half(total)
	return "💰 **金額抽出結果**\n" +
		fmt.Sprintf("ご利用金額合計: %s円\n", amount.FormatYen(total)) +
		fmt.Sprintf("半額: %s円\n", amount.FormatYen(half)) +
		"⚠️金額が正しいことを確認してください\n\n" +
		"↓コピー用金額"
}

// copyMessage is the bare half amount, sent separately so it can be copied
func copyMessage(total int64) string {
	return strconv.FormatInt(amount.Half(total), 10)
}

// failureMessage lists suggestions and what each profile read
func failureMessage(attempts []models.RecognitionAttempt) string {
	var b strings.Builder
	b.WriteString("❌ 金額を抽出できませんでした。\n\n")
	b.WriteString("**改善提案:**\n")
	b.WriteString("• 画像の解像度を上げる\n")
	b.WriteString("• 文字が鮮明に見える部分をトリミングする\n")
	b.WriteString("• 明るさやコントラストを調整する\n\n")
	b.WriteString("**デバッグ情報:**\n")
	for i, a := range attempts {
		fmt.Fprintf(&b, "%d. %s: %s...\n", i+1, a.Profile, truncate(a.Text, debugTextLimit))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// helpEmbed describes the bot
func helpEmbed(now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       0x0099FF,
		Title:       "💰 高精度金額抽出Bot",
		Description: "スクリーンショットから利用金額を高精度で抽出し、半額を計算します。",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🔍 高精度機能",
				Value:  "• 画像の自動前処理\n• 複数OCR設定での順次処理\n• 日本語・英語の混合認識",
				Inline: false,
			},
			{
				Name:   "📷 推奨画像条件",
				Value:  "• 高解像度 (1000px以上)\n• 文字が鮮明\n• 十分な明るさ",
				Inline: true,
			},
			{
				Name:   "🎯 対応形式",
				Value:  "PNG, JPG, JPEG, GIF",
				Inline: true,
			},
		},
		Timestamp: now.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "高精度金額抽出Bot v2.0",
		},
	}
}

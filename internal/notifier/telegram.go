package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/pauljones0/smart-deals-bot/internal/batch"
	"github.com/pauljones0/smart-deals-bot/internal/models"
)

// telegramCaptionLimit is the maximum caption length Telegram accepts on a
// photo or the first item of an album.
const telegramCaptionLimit = 1024

// Telegram posts each batch as a photo album with the summary as the caption
// of the first photo.
type Telegram struct {
	bot         *tgbotapi.BotAPI
	chatID      int64
	channel     string
	rateLimiter *rate.Limiter
}

// NewTelegram connects to the Bot API. destination is a numeric chat id or
// an @channel username.
func NewTelegram(token, destination string) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, destination, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint is NewTelegram against a custom Bot API server.
// endpoint is a format string taking the token and the method name.
func NewTelegramWithEndpoint(token, destination, endpoint string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	slog.Info("Authorized on Telegram", "username", bot.Self.UserName)

	t := &Telegram{
		bot: bot,
		// Telegram allows roughly 20 messages per minute into one chat.
		rateLimiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
	if id, err := strconv.ParseInt(destination, 10, 64); err == nil {
		t.chatID = id
	} else {
		t.channel = destination
		if !strings.HasPrefix(t.channel, "@") {
			t.channel = "@" + t.channel
		}
	}
	return t, nil
}

func (t *Telegram) Publish(ctx context.Context, b batch.Batch) error {
	if len(b.Deals) == 0 {
		return nil
	}
	if err := t.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	text := caption(b)

	// Albums need at least two items.
	if len(b.Deals) == 1 {
		photo := t.newPhoto(tgbotapi.FileURL(photoURL(b.Deals[0])))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.bot.Send(photo); err != nil {
			return fmt.Errorf("telegram batch %d/%d: sendPhoto: %w", b.Index, b.Total, err)
		}
	} else {
		media := make([]interface{}, 0, len(b.Deals))
		for i, d := range b.Deals {
			photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(photoURL(d)))
			if i == 0 {
				photo.Caption = text
				photo.ParseMode = tgbotapi.ModeMarkdown
			}
			media = append(media, photo)
		}

		group := tgbotapi.NewMediaGroup(t.chatID, media)
		group.ChannelUsername = t.channel
		if _, err := t.bot.SendMediaGroup(group); err != nil {
			return fmt.Errorf("telegram batch %d/%d: sendMediaGroup: %w", b.Index, b.Total, err)
		}
	}

	slog.Info("Published batch to Telegram", "batch", b.Index, "total", b.Total, "deals", len(b.Deals))
	return nil
}

func (t *Telegram) newPhoto(file tgbotapi.RequestFileData) tgbotapi.PhotoConfig {
	if t.channel != "" {
		return tgbotapi.NewPhotoToChannel(t.channel, file)
	}
	return tgbotapi.NewPhoto(t.chatID, file)
}

func photoURL(d models.Deal) string {
	if d.Image == "" {
		return models.PlaceholderImage
	}
	return d.Image
}

// caption returns the batch summary, re-rendered with fewer items when it
// exceeds the caption limit.
func caption(b batch.Batch) string {
	if utf8.RuneCountInString(b.Summary) <= telegramCaptionLimit {
		return b.Summary
	}
	return batch.FitSummary(b.Deals, b.Shown, telegramCaptionLimit)
}

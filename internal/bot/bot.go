// Package bot handles the Telegram conversation: link intake, format
// selection and delivery of downloaded media.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/queue"
)

// sender is the slice of the Telegram client the bot needs. Satisfied
// by *tgbotapi.BotAPI; tests substitute a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot routes Telegram updates. Download work is enqueued, never run on
// the update loop.
type Bot struct {
	api    sender
	queue  *queue.Queue
	cfg    config.DownloadConfig
	logger *slog.Logger

	// waiting tracks chats that pressed "save" and owe us a link.
	waiting sync.Map // chatID -> struct{}
	// links holds the captured link per chat until a format is chosen.
	links sync.Map // chatID -> string
}

func New(api sender, q *queue.Queue, cfg config.DownloadConfig, logger *slog.Logger) *Bot {
	return &Bot{
		api:    api,
		queue:  q,
		cfg:    cfg,
		logger: logger,
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.logger.Info("bot update loop started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	switch msg.Text {
	case buttonSave:
		b.waiting.Store(chatID, struct{}{})
		b.reply(chatID, promptLink)
		return
	case buttonHelp:
		b.reply(chatID, helpText)
		return
	case buttonSettings:
		b.reply(chatID, settingsText)
		return
	}

	if _, ok := b.waiting.Load(chatID); ok {
		b.handleLink(msg)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.waiting.Delete(chatID)
		b.links.Delete(chatID)
		greeting := fmt.Sprintf(
			"👋 Привет, %s!\n\nЯ бот для скачивания видео и фото из социальных сетей.\n\n✅ YouTube, Instagram, TikTok, Facebook, Pinterest\n\nВыберите действие:",
			msg.From.FirstName)
		out := tgbotapi.NewMessage(chatID, greeting)
		out.ReplyMarkup = mainKeyboard()
		b.send(out)
	case "status":
		b.reply(chatID, "✅ Статус: Бот активен и работает!")
	case "help":
		b.reply(chatID, helpText)
	}
}

func (b *Bot) handleLink(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.Text == "" {
		b.reply(chatID, promptNoText)
		return
	}

	link := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		b.reply(chatID, promptBadLink)
		return
	}

	b.links.Store(chatID, link)
	b.waiting.Delete(chatID)

	out := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Ссылка получена!\n\nВыберите формат:\n%s", link))
	out.ReplyMarkup = formatKeyboard()
	b.send(out)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch cb.Data {
	case callbackCancel:
		b.request(tgbotapi.NewDeleteMessage(chatID, cb.Message.MessageID))
		b.links.Delete(chatID)
		b.waiting.Delete(chatID)
		b.request(tgbotapi.NewCallback(cb.ID, "❌ Отменено"))
		return
	case callbackVideo, callbackPhoto:
		format := domain.FormatVideo
		label := "видео"
		if cb.Data == callbackPhoto {
			format = domain.FormatPhoto
			label = "фото"
		}

		linkVal, ok := b.links.LoadAndDelete(chatID)
		if !ok {
			b.request(tgbotapi.NewCallback(cb.ID, "Ссылка не найдена, начните заново"))
			return
		}

		edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID,
			fmt.Sprintf("⏳ Скачиваю %s...\n\nЭто может занять до 2 минут", label))
		b.send(edit)
		b.request(tgbotapi.NewCallback(cb.ID, fmt.Sprintf("📥 Загрузка %s началась!", label)))

		b.enqueue(ctx, chatID, cb.Message.MessageID, linkVal.(string), format)
		return
	}
	b.request(tgbotapi.NewCallback(cb.ID, ""))
}

func (b *Bot) enqueue(ctx context.Context, chatID int64, messageID int, link string, format domain.MediaFormat) {
	job := domain.NewDownloadJob(
		domain.JobID(uuid.NewString()),
		domain.DownloadRequest{URL: link, Format: format},
		chatID,
		messageID,
	)
	if err := b.queue.Enqueue(ctx, job); err != nil {
		b.logger.Error("enqueue failed", "error", err)
		b.reply(chatID, "❌ Не удалось поставить задачу в очередь")
		return
	}
	b.logger.Info("job enqueued",
		"job_id", job.ID,
		"chat_id", chatID,
		"platform", job.Request.Platform().String())
}

// DeliverResult sends a finished job's outcome back to the chat. Wired
// as the worker pool's result callback.
func (b *Bot) DeliverResult(job *domain.DownloadJob, file *domain.DownloadedFile, err error) {
	if err != nil {
		edit := tgbotapi.NewEditMessageText(job.ChatID, job.MessageID, renderError(err))
		b.send(edit)
		return
	}
	defer file.Remove()

	if file.Size > b.cfg.MaxFileSize {
		edit := tgbotapi.NewEditMessageText(job.ChatID, job.MessageID,
			fmt.Sprintf("❌ Файл слишком большой (%.1fMB). Максимум: 50MB", float64(file.Size)/1024/1024))
		b.send(edit)
		return
	}

	var out tgbotapi.Chattable
	if file.Format == domain.FormatPhoto {
		photo := tgbotapi.NewPhoto(job.ChatID, tgbotapi.FilePath(file.Path))
		photo.Caption = "✅ Фото успешно скачано!"
		out = photo
	} else {
		video := tgbotapi.NewVideo(job.ChatID, tgbotapi.FilePath(file.Path))
		video.Caption = "✅ Видео успешно скачано!"
		out = video
	}

	if _, sendErr := b.api.Send(out); sendErr != nil {
		b.logger.Error("media delivery failed", "error", sendErr)
		edit := tgbotapi.NewEditMessageText(job.ChatID, job.MessageID,
			fmt.Sprintf("❌ Ошибка отправки: %s", sendErr))
		b.send(edit)
		return
	}
	b.request(tgbotapi.NewDeleteMessage(job.ChatID, job.MessageID))
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("send failed", "error", err)
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.logger.Error("request failed", "error", err)
	}
}

package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/queue"
)

type recordingSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return tgbotapi.Message{MessageID: len(r.sent)}, nil
}

func (r *recordingSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (r *recordingSender) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	msg, ok := r.sent[len(r.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("last sent = %T, want MessageConfig", r.sent[len(r.sent)-1])
	}
	return msg
}

func newTestBot(t *testing.T) (*Bot, *recordingSender, *queue.Queue) {
	t.Helper()
	sender := &recordingSender{}
	q := queue.New()
	cfg := config.DownloadConfig{MaxFileSize: 50 << 20}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(sender, q, cfg, logger), sender, q
}

func textMessage(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{FirstName: "Тест"},
			Text: text,
		},
	}
}

func commandMessage(chatID int64, cmd string) tgbotapi.Update {
	u := textMessage(chatID, "/"+cmd)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}}
	return u
}

func callbackUpdate(chatID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb1",
			Data: data,
			Message: &tgbotapi.Message{
				MessageID: messageID,
				Chat:      &tgbotapi.Chat{ID: chatID},
			},
		},
	}
}

func TestBot_StartShowsMainKeyboard(t *testing.T) {
	b, sender, _ := newTestBot(t)
	b.HandleUpdate(context.Background(), commandMessage(100, "start"))

	msg := sender.lastMessage(t)
	if !strings.Contains(msg.Text, "Привет") {
		t.Errorf("greeting = %q", msg.Text)
	}
	if _, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Errorf("reply markup = %T, want ReplyKeyboardMarkup", msg.ReplyMarkup)
	}
}

func TestBot_SaveButtonAsksForLink(t *testing.T) {
	b, sender, _ := newTestBot(t)
	b.HandleUpdate(context.Background(), textMessage(100, buttonSave))

	msg := sender.lastMessage(t)
	if msg.Text != promptLink {
		t.Errorf("text = %q, want link prompt", msg.Text)
	}
}

func TestBot_RejectsNonHTTPLink(t *testing.T) {
	b, sender, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleUpdate(ctx, textMessage(100, buttonSave))
	b.HandleUpdate(ctx, textMessage(100, "ftp://example.com/file"))

	msg := sender.lastMessage(t)
	if msg.Text != promptBadLink {
		t.Errorf("text = %q, want bad link prompt", msg.Text)
	}
}

func TestBot_LinkShowsFormatKeyboard(t *testing.T) {
	b, sender, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleUpdate(ctx, textMessage(100, buttonSave))
	b.HandleUpdate(ctx, textMessage(100, "https://www.tiktok.com/@user/video/1"))

	msg := sender.lastMessage(t)
	if !strings.Contains(msg.Text, "Выберите формат") {
		t.Errorf("text = %q", msg.Text)
	}
	if _, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Errorf("reply markup = %T, want InlineKeyboardMarkup", msg.ReplyMarkup)
	}
}

func TestBot_IgnoresLinkWithoutSavePress(t *testing.T) {
	b, sender, q := newTestBot(t)
	b.HandleUpdate(context.Background(), textMessage(100, "https://www.tiktok.com/@user/video/1"))

	sender.mu.Lock()
	sent := len(sender.sent)
	sender.mu.Unlock()
	if sent != 0 {
		t.Errorf("sent %d messages, want 0", sent)
	}
	if stats := q.Stats(context.Background()); stats.Queued != 0 {
		t.Errorf("queued = %d, want 0", stats.Queued)
	}
}

func TestBot_FormatChoiceEnqueuesJob(t *testing.T) {
	b, _, q := newTestBot(t)
	ctx := context.Background()
	b.HandleUpdate(ctx, textMessage(100, buttonSave))
	b.HandleUpdate(ctx, textMessage(100, "https://www.tiktok.com/@user/video/1"))
	b.HandleUpdate(ctx, callbackUpdate(100, 7, callbackVideo))

	job, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if job.Request.URL != "https://www.tiktok.com/@user/video/1" {
		t.Errorf("url = %q", job.Request.URL)
	}
	if job.Request.Format != domain.FormatVideo {
		t.Errorf("format = %s, want video", job.Request.Format)
	}
	if job.ChatID != 100 || job.MessageID != 7 {
		t.Errorf("chat/message = %d/%d, want 100/7", job.ChatID, job.MessageID)
	}
}

func TestBot_SecondFormatChoiceFindsNoLink(t *testing.T) {
	b, _, q := newTestBot(t)
	ctx := context.Background()
	b.HandleUpdate(ctx, textMessage(100, buttonSave))
	b.HandleUpdate(ctx, textMessage(100, "https://www.tiktok.com/@user/video/1"))
	b.HandleUpdate(ctx, callbackUpdate(100, 7, callbackVideo))
	b.HandleUpdate(ctx, callbackUpdate(100, 7, callbackVideo))

	if stats := q.Stats(ctx); stats.Queued != 1 {
		t.Errorf("queued = %d, want 1 (link is single-use)", stats.Queued)
	}
}

func TestBot_CancelDropsLink(t *testing.T) {
	b, _, q := newTestBot(t)
	ctx := context.Background()
	b.HandleUpdate(ctx, textMessage(100, buttonSave))
	b.HandleUpdate(ctx, textMessage(100, "https://www.tiktok.com/@user/video/1"))
	b.HandleUpdate(ctx, callbackUpdate(100, 7, callbackCancel))
	b.HandleUpdate(ctx, callbackUpdate(100, 7, callbackVideo))

	if stats := q.Stats(ctx); stats.Queued != 0 {
		t.Errorf("queued = %d, want 0 after cancel", stats.Queued)
	}
}

func deliveredJob() *domain.DownloadJob {
	return domain.NewDownloadJob("job-1", domain.DownloadRequest{
		URL:    "https://www.tiktok.com/@user/video/1",
		Format: domain.FormatVideo,
	}, 100, 7)
}

func TestBot_DeliverResultSendsVideoAndRemovesFile(t *testing.T) {
	b, sender, _ := newTestBot(t)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	b.DeliverResult(deliveredJob(), &domain.DownloadedFile{Path: path, Size: 2048, Format: domain.FormatVideo}, nil)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if _, ok := sender.sent[0].(tgbotapi.VideoConfig); !ok {
		t.Errorf("sent %T, want VideoConfig", sender.sent[0])
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("staged file still exists after delivery")
	}
}

func TestBot_DeliverResultPhoto(t *testing.T) {
	b, sender, _ := newTestBot(t)

	path := filepath.Join(t.TempDir(), "pic.jpg")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	b.DeliverResult(deliveredJob(), &domain.DownloadedFile{Path: path, Size: 2048, Format: domain.FormatPhoto}, nil)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if _, ok := sender.sent[0].(tgbotapi.PhotoConfig); !ok {
		t.Errorf("sent %T, want PhotoConfig", sender.sent[0])
	}
}

func TestBot_DeliverResultOversizeFile(t *testing.T) {
	b, sender, _ := newTestBot(t)

	path := filepath.Join(t.TempDir(), "huge.mp4")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	b.DeliverResult(deliveredJob(), &domain.DownloadedFile{Path: path, Size: 60 << 20, Format: domain.FormatVideo}, nil)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	edit, ok := sender.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("sent %T, want EditMessageTextConfig", sender.sent[0])
	}
	if !strings.Contains(edit.Text, "слишком большой") {
		t.Errorf("text = %q", edit.Text)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("oversize file was not removed")
	}
}

func TestBot_DeliverResultError(t *testing.T) {
	b, sender, _ := newTestBot(t)
	b.DeliverResult(deliveredJob(), nil, errors.New("\x1b[31mall download strategies failed\x1b[0m"))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	edit, ok := sender.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("sent %T, want EditMessageTextConfig", sender.sent[0])
	}
	if strings.Contains(edit.Text, "\x1b") {
		t.Error("error text still contains ANSI escapes")
	}
	if !strings.Contains(edit.Text, "all download strategies failed") {
		t.Errorf("text = %q", edit.Text)
	}
}

func TestRenderErrorTruncates(t *testing.T) {
	long := errors.New(strings.Repeat("x", 500))
	msg := renderError(long)
	if len(msg) > 220 {
		t.Errorf("rendered error length = %d", len(msg))
	}
}

func TestRenderErrorTruncatesOnRuneBoundary(t *testing.T) {
	long := errors.New(strings.Repeat("ошибка загрузки ", 40))
	msg := renderError(long)
	if !utf8.ValidString(msg) {
		t.Error("rendered error is not valid UTF-8")
	}
	body := strings.TrimPrefix(msg, "❌ Ошибка:\n")
	if got := len([]rune(body)); got > 200 {
		t.Errorf("rendered error carries %d runes, want at most 200", got)
	}
}

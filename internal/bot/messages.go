package bot

import (
	"fmt"
	"regexp"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	buttonSave     = "📥 Сохранить контент"
	buttonHelp     = "ℹ️ Помощь"
	buttonSettings = "⚙️ Настройки"

	callbackVideo  = "format_mp4"
	callbackPhoto  = "format_jpg"
	callbackCancel = "cancel"
)

const helpText = `🤖 Справка по боту

Скачивайте видео и фото с популярных платформ!

Поддерживаемые:
• YouTube (видео)
• TikTok (видео)
• Instagram (фото, рилсы)
• Pinterest (фото)
• Facebook (видео, фото)

Как использовать:
1. Нажмите "📥 Сохранить контент"
2. Отправьте ссылку
3. Выберите формат
4. Готово! 🎉

Макс. размер файла: 50MB`

const settingsText = `⚙️ Настройки

🟢 Статус: Активен
📊 Версия: 2.0
⏰ Работает 24/7`

const (
	promptLink    = "📎 Отправьте ссылку на видео или фото.\n\nПоддерживаются: YouTube, Instagram, TikTok, Facebook, Pinterest"
	promptBadLink = "❌ Отправьте корректную ссылку (http:// или https://)"
	promptNoText  = "❌ Отправьте текстовое сообщение с ссылкой"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// renderError turns a pipeline failure into a short user-facing message.
// yt-dlp output can carry ANSI color codes, so those are stripped.
func renderError(err error) string {
	msg := ansiPattern.ReplaceAllString(err.Error(), "")
	if runes := []rune(msg); len(runes) > 200 {
		msg = string(runes[:200])
	}
	return fmt.Sprintf("❌ Ошибка:\n%s", msg)
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonSave)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonHelp)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonSettings)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func formatKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📹 Видео (MP4)", callbackVideo)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🖼️ Фото (JPG)", callbackPhoto)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", callbackCancel)),
	)
}

package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"khatma/internal/rotation"
)

// Callback tokens carried by inline buttons
const (
	cbStartJourney = "start_journey"
	cbAbout        = "about"
	cbHelp         = "help"
	cbMainMenu     = "main_menu"
	cbMarkDone     = "mark_done"
	cbMyStatus     = "my_status"
	cbOpenQuran    = "open_quran"
	cbDua          = "dua"
	cbTips         = "tips"
	cbConfirmLink  = "confirm_link:"
	cbCancelLink   = "cancel_link"
)

// Telegram rejects callback data longer than this many bytes
const maxCallbackData = 64

func markup(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func startKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🕌 ابدأ الآن", cbStartJourney)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 عن البرنامج", cbAbout),
			tgbotapi.NewInlineKeyboardButtonData("❓ المساعدة", cbHelp),
		),
	)
}

func mainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ سجّل قراءتك", cbMarkDone)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 افتح المصحف", cbOpenQuran),
			tgbotapi.NewInlineKeyboardButtonData("📊 إحصائياتي", cbMyStatus),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤲 دعاء الختم", cbDua),
			tgbotapi.NewInlineKeyboardButtonData("💬 نصائح القراءة", cbTips),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 تحديث القائمة", cbMainMenu),
			tgbotapi.NewInlineKeyboardButtonData("❓ مساعدة", cbHelp),
		),
	)
}

// confirmLinkKeyboard returns nil when the name does not fit in callback data
func confirmLinkKeyboard(name string) *tgbotapi.InlineKeyboardMarkup {
	data := cbConfirmLink + name
	if len(data) > maxCallbackData {
		return nil
	}
	return markup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ نعم، هذا أنا", data)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ لا، إلغاء", cbCancelLink)),
	)
}

func backToMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏠 العودة للقائمة الرئيسية", cbMainMenu)),
	)
}

func helpKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🕌 ابدأ الآن", cbStartJourney)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏠 القائمة الرئيسية", cbMainMenu)),
	)
}

func aboutKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🕌 ابدأ الآن", cbStartJourney)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❓ المساعدة", cbHelp)),
	)
}

// quranKeyboard links to the start page of juz, or to the first page when juz is 0
func quranKeyboard(juz int) *tgbotapi.InlineKeyboardMarkup {
	label := "📖 افتح المصحف"
	link, err := rotation.ReaderLink(juz)
	if err != nil {
		link, _ = rotation.ReaderLink(1)
	} else {
		label = "📖 افتح " + rotation.JuzName(juz)
	}
	return markup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, link)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏠 القائمة الرئيسية", cbMainMenu)),
	)
}

// ReminderKeyboard is attached to reminders: record the reading, or open the juz
func ReminderKeyboard(juz int) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ تمت القراءة", cbMarkDone)),
	}
	if link, err := rotation.ReaderLink(juz); err == nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📖 افتح "+rotation.JuzName(juz), link)))
	}
	return markup(rows...)
}

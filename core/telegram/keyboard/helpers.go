package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes one inline data button. Unique and Data end up in the
// callback data as "\f<Unique>|<Data>", which Telegram caps at 64 bytes.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// MaxCallbackData is Telegram's limit for callback_data in bytes.
const MaxCallbackData = 64

// Fits reports whether b's encoded callback data stays within the limit.
func (b InlineBtn) Fits() bool {
	n := 1 + len(b.Unique)
	if b.Data != "" {
		n += 1 + len(b.Data)
	}
	return n <= MaxCallbackData
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// It returns nil when there are no buttons so the message is sent without markup.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			r = append(r, *markup.Data(btn.Text, btn.Unique, btn.Data).Inline())
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// InlineButtons places each button on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

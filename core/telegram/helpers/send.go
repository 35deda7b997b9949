package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// A nil dispatcher makes the helpers send synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends text with opts to the current chat.
func SendText(c tele.Context, text string, opts *tele.SendOptions) error {
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if opts != nil {
			return c.Send(text, opts)
		}
		return c.Send(text)
	})
}

// SendHTML sends a message in HTML parse mode with optional reply markup.
func SendHTML(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, htmlOptions(markup))
}

// EditOrSendHTML edits the message the pressed button belongs to, or sends a new one.
func EditOrSendHTML(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return sendAsync(c, "send.edit", "editMessageText", func() error {
		return c.EditOrSend(text, htmlOptions(markup))
	})
}

func htmlOptions(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup}
}

// Package bot adapts the dialog engine to the Telegram runtime: it registers
// commands and callbacks, converts inbound messages and renders replies.
package bot

import (
	"context"
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/logger"
	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/callbacks"
	"github.com/m3rciful/postbot/core/telegram/commands"
	"github.com/m3rciful/postbot/core/telegram/format"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/core/telegram/keyboard"
	"github.com/m3rciful/postbot/internal/dialog"
)

// Engine is the part of *dialog.Engine the handlers drive.
type Engine interface {
	InProgress(userID int64) bool
	Start(ctx context.Context, userID int64) []dialog.Reply
	Menu(ctx context.Context, userID int64) []dialog.Reply
	HandleText(ctx context.Context, userID int64, in dialog.Input) ([]dialog.Reply, error)
	HandleAction(ctx context.Context, userID int64, action, payload string) ([]dialog.Reply, error)
}

const msgTextOnly = "Only text messages are supported. Use /menu to see the options."

// SendFunc delivers one HTML message.
type SendFunc func(c tele.Context, text string, markup *tele.ReplyMarkup) error

// Handlers implements router.FSM and ui.FallbackProvider on top of an Engine.
type Handlers struct {
	engine Engine
	send   SendFunc
}

// New returns handlers that send through the async helper dispatcher.
func New(engine Engine) *Handlers {
	return &Handlers{engine: engine, send: tghelpers.SendHTML}
}

// WithSender replaces the delivery function.
func (h *Handlers) WithSender(send SendFunc) *Handlers {
	h.send = send
	return h
}

// Register adds /start, /menu and one callback per dialog action to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Set up the persona",
	})
	reg.RegisterCommand("/menu", commands.Command{
		Handler:     h.Menu,
		Description: "Show the main menu",
		Aliases:     []string{"menu"},
	})
	return reg.RegisterCallbacks(dialog.Actions(), h.Callback)
}

// Start handles /start.
func (h *Handlers) Start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, _ := tghelpers.IDs(c)
	return h.deliver(ctx, c, h.engine.Start(ctx, userID))
}

// Menu handles /menu.
func (h *Handlers) Menu(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, _ := tghelpers.IDs(c)
	return h.deliver(ctx, c, h.engine.Menu(ctx, userID))
}

// InProgress reports whether the user has a pending question.
func (h *Handlers) InProgress(userID int64) bool {
	return h.engine.InProgress(userID)
}

// ManagerHandler feeds a text message, with its formatting, to the engine.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, _ := tghelpers.IDs(c)

	in := dialog.Input{Text: c.Text()}
	if msg := c.Message(); msg != nil {
		in.Spans = format.SpansFromEntities(msg.Entities)
	}
	replies, err := h.engine.HandleText(ctx, userID, in)
	return errors.Join(err, h.deliver(ctx, c, replies))
}

// Callback dispatches a button press to the engine.
func (h *Handlers) Callback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, _ := tghelpers.IDs(c)
	action, payload := callbacks.ParseCallbackData(c.Callback())

	replies, err := h.engine.HandleAction(ctx, userID, action, payload)
	return errors.Join(err, h.deliver(ctx, c, replies))
}

// UnknownText answers text nobody claimed; the engine replies "unrecognized".
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return h.ManagerHandler
}

// UnknownDocument answers files, which the bot does not accept.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.send(c, msgTextOnly, nil)
	}
}

// UnknownCallback acknowledges a button without a registered action and
// lets the engine answer "unsupported action".
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Respond()
		return h.Callback(c)
	}
}

func (h *Handlers) deliver(ctx context.Context, c tele.Context, replies []dialog.Reply) error {
	var errs []error
	for _, r := range replies {
		if err := h.send(c, r.Text, Markup(ctx, r.Keyboard)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Markup renders dialog buttons as an inline keyboard. Buttons whose callback
// data would exceed Telegram's limit are dropped and logged.
func Markup(ctx context.Context, rows [][]dialog.Button) *tele.ReplyMarkup {
	out := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btn := keyboard.InlineBtn{Text: b.Label, Unique: b.Action, Data: b.Payload}
			if !btn.Fits() {
				logger.Warn(ctx, "tg", "button.dropped",
					slog.String("action", b.Action),
					slog.Int("payload_bytes", len(b.Payload)),
				)
				continue
			}
			btns = append(btns, btn)
		}
		if len(btns) > 0 {
			out = append(out, btns)
		}
	}
	return keyboard.InlineButtonsRows(out...)
}

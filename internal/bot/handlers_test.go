package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/format"
	"github.com/m3rciful/postbot/internal/dialog"
)

type fakeEngine struct {
	pending bool
	input   dialog.Input
	action  string
	payload string
	replies []dialog.Reply
	err     error
}

func (f *fakeEngine) InProgress(int64) bool { return f.pending }

func (f *fakeEngine) Start(context.Context, int64) []dialog.Reply { return f.replies }

func (f *fakeEngine) Menu(context.Context, int64) []dialog.Reply { return f.replies }

func (f *fakeEngine) HandleText(_ context.Context, _ int64, in dialog.Input) ([]dialog.Reply, error) {
	f.input = in
	return f.replies, f.err
}

func (f *fakeEngine) HandleAction(_ context.Context, _ int64, action, payload string) ([]dialog.Reply, error) {
	f.action, f.payload = action, payload
	return f.replies, f.err
}

type sent struct {
	text   string
	markup *tele.ReplyMarkup
}

func newHandlers(engine Engine) (*Handlers, *[]sent) {
	var out []sent
	h := New(engine).WithSender(func(_ tele.Context, text string, markup *tele.ReplyMarkup) error {
		out = append(out, sent{text: text, markup: markup})
		return nil
	})
	return h, &out
}

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b.NewContext(upd)
}

func TestManagerHandlerPassesEntities(t *testing.T) {
	engine := &fakeEngine{replies: []dialog.Reply{{Text: "Example added."}}}
	h, out := newHandlers(engine)

	c := newContext(t, tele.Update{ID: 1, Message: &tele.Message{
		Text:     "Hello world",
		Sender:   &tele.User{ID: 5},
		Chat:     &tele.Chat{ID: 5},
		Entities: tele.Entities{{Type: tele.EntityBold, Offset: 6, Length: 5}},
	}})
	require.NoError(t, h.ManagerHandler(c))

	assert.Equal(t, "Hello world", engine.input.Text)
	assert.Equal(t, []format.Span{{Offset: 6, Length: 5, Kind: format.Bold}}, engine.input.Spans)
	require.Len(t, *out, 1)
	assert.Equal(t, "Example added.", (*out)[0].text)
	assert.Nil(t, (*out)[0].markup)
}

func TestCallbackParsesActionAndPayload(t *testing.T) {
	engine := &fakeEngine{replies: []dialog.Reply{{
		Text:     "Write the topic",
		Keyboard: [][]dialog.Button{{{Label: "Accept", Action: dialog.ActionAcceptPost}}},
	}}}
	h, out := newHandlers(engine)

	c := newContext(t, tele.Update{ID: 2, Callback: &tele.Callback{
		Sender: &tele.User{ID: 5},
		Data:   "\f" + dialog.ActionPostFor + "|weekly promo",
	}})
	require.NoError(t, h.Callback(c))

	assert.Equal(t, dialog.ActionPostFor, engine.action)
	assert.Equal(t, "weekly promo", engine.payload)
	require.Len(t, *out, 1)
	require.NotNil(t, (*out)[0].markup)
	assert.Equal(t, dialog.ActionAcceptPost, (*out)[0].markup.InlineKeyboard[0][0].Unique)
}

func TestEngineErrorsStillDeliverReplies(t *testing.T) {
	boom := errors.New("persist document: disk full")
	engine := &fakeEngine{replies: []dialog.Reply{{Text: "Something went wrong"}}, err: boom}
	h, out := newHandlers(engine)

	c := newContext(t, tele.Update{ID: 3, Message: &tele.Message{Text: "Aria", Sender: &tele.User{ID: 5}, Chat: &tele.Chat{ID: 5}}})
	err := h.ManagerHandler(c)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, *out, 1)
}

func TestRegister(t *testing.T) {
	reg := tg.NewRegistry()
	h, _ := newHandlers(&fakeEngine{})
	require.NoError(t, h.Register(reg))

	for _, a := range dialog.Actions() {
		_, ok := reg.GetCallback(a)
		assert.True(t, ok, a)
	}
	assert.Len(t, reg.ListCommands(true), 2)

	routes := h.Routes(reg, 0)
	// two commands, text, document, callback
	assert.Len(t, routes, 5)
}

func TestMarkupDropsOversizedButtons(t *testing.T) {
	rows := [][]dialog.Button{
		{{Label: "ok", Action: dialog.ActionPostFor, Payload: "promo"}},
		{{Label: "too long", Action: dialog.ActionPostFor, Payload: strings.Repeat("x", 80)}},
	}
	m := Markup(context.Background(), rows)
	require.NotNil(t, m)
	assert.Len(t, m.InlineKeyboard, 1)

	assert.Nil(t, Markup(context.Background(), nil))
}

func TestUnknownDocument(t *testing.T) {
	h, out := newHandlers(&fakeEngine{})
	c := newContext(t, tele.Update{ID: 4, Message: &tele.Message{Sender: &tele.User{ID: 5}, Chat: &tele.Chat{ID: 5}}})

	require.NoError(t, h.UnknownDocument()(c))
	require.Len(t, *out, 1)
	assert.Equal(t, msgTextOnly, (*out)[0].text)
}

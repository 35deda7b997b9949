package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("/menu", commands.Command{Handler: noop, Description: "Menu", Aliases: []string{"menú"}})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", AdminOnly: true})
	reg.RegisterCommand("nope", commands.Command{Handler: noop, Description: "No slash"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Again"})

	assert.Len(t, reg.Commands(), 3)
	assert.Equal(t, []tele.Command{
		{Text: "/menu", Description: "Menu"},
		{Text: "/start", Description: "Start"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)

	key, cmd, ok := reg.LookupCommand("menú")
	require.True(t, ok)
	assert.Equal(t, "/menu", key)
	assert.Equal(t, "Menu", cmd.Description)

	key, _, ok = reg.LookupCommand("start")
	assert.True(t, ok)
	assert.Equal(t, "/start", key)

	_, _, ok = reg.LookupCommand("/unknown")
	assert.False(t, ok)
}

func TestRegisterCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallbacks([]string{"menu", "post_for"}, noop))
	assert.Error(t, reg.RegisterCallback("menu", noop))
	assert.Error(t, reg.RegisterCallback("", noop))
	assert.Error(t, reg.RegisterCallbacks([]string{"other", "post_for"}, noop))

	assert.Equal(t, []string{"menu", "other", "post_for"}, reg.ListCallbacks())
	_, ok := reg.GetCallback("post_for")
	assert.True(t, ok)
	_, ok = reg.GetCallback("missing")
	assert.False(t, ok)
	assert.NotNil(t, reg.CallbackNotFound())
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "Webhook", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"}})
	hook, ok := p.(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", hook.Listen)
	assert.Equal(t, "https://example.org/hook", hook.Endpoint.PublicURL)

	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, defaultLongPollTimeout, lp.Timeout)
}

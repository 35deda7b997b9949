package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name        string
		cb          *tele.Callback
		key, payload string
	}{
		{"nil", nil, "", ""},
		{"prefixed with payload", &tele.Callback{Data: "\fpost_for|weekly promo"}, "post_for", "weekly promo"},
		{"prefixed without payload", &tele.Callback{Data: "\fmenu"}, "menu", ""},
		{"payload keeps separators", &tele.Callback{Data: "\fpost_for|a|b"}, "post_for", "a|b"},
		{"unprefixed", &tele.Callback{Data: "pick_example|3"}, "pick_example", "3"},
		{"unique set by telebot", &tele.Callback{Unique: "pick_example", Data: "3"}, "pick_example", "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}

package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies the replies for updates no command, callback
// or pending question claims.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

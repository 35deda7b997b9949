package format

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	telegramPolicy = newTelegramPolicy()
	stripPolicy    = bluemonday.StrictPolicy()
)

func newTelegramPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "tg", "mailto")
	p.RequireParseableURLs(true)
	return p
}

// Escape escapes text for the HTML parse mode.
func Escape(text string) string {
	return html.EscapeString(text)
}

// SanitizeHTML drops every tag Telegram's HTML parse mode would reject and
// escapes stray markup characters.
func SanitizeHTML(s string) string {
	return telegramPolicy.Sanitize(s)
}

// PlainPreview strips tags and entities and cuts the result to max runes.
func PlainPreview(s string, max int) string {
	plain := html.UnescapeString(stripPolicy.Sanitize(s))
	plain = strings.Join(strings.Fields(plain), " ")
	if max <= 0 || utf8.RuneCountInString(plain) <= max {
		return plain
	}
	runes := []rune(plain)
	return string(runes[:max-1]) + "…"
}

// Package commands describes slash commands registered with the bot.
package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command handler plus the metadata shown in Telegram's command menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are left out of the menu and wrapped with the admin check.
	AdminOnly bool
	Hidden    bool
	// Aliases are matched when the command arrives as plain text, with or without '/'.
	Aliases []string
}

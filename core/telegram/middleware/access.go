package middleware

import (
	"log/slog"

	"github.com/m3rciful/postbot/core/logger"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	// AdminID is the only user allowed through; 0 disables the check.
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only the admin user reach downstream handlers.
// Updates without a sender are rejected while the check is enabled.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.AdminID == 0 {
			return next
		}
		return func(c tele.Context) error {
			if u := c.Sender(); u != nil && u.ID == opts.AdminID {
				return next(c)
			}
			userID, _ := tghelpers.IDs(c)
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied", slog.Int64("user_id", userID))
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}

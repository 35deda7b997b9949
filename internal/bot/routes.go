package bot

import (
	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/router"
	"github.com/m3rciful/postbot/core/telegram/ui"
)

var (
	_ router.FSM          = (*Handlers)(nil)
	_ ui.FallbackProvider = (*Handlers)(nil)
)

// Routes builds the command, text and callback routes for a registry filled by Register.
func (h *Handlers) Routes(reg *tg.Registry, adminID int64) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: adminID})
	routes = append(routes, router.TextRoutes(h, reg, router.TextOptions{
		UnknownText:     h.UnknownText(),
		UnknownDocument: h.UnknownDocument(),
	})...)
	return append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: h.UnknownCallback()}))
}

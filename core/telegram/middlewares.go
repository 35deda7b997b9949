package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareHooks are optional replies for updates the default chain drops.
type MiddlewareHooks struct {
	OnLimited  tele.HandlerFunc
	OnRejected tele.HandlerFunc
}

// DefaultMiddlewares builds the global chain: recover, admin gate, rate limit,
// logger and metrics, in that order.
func DefaultMiddlewares(cfg *coreconfig.Config, hooks MiddlewareHooks) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}
	if cfg == nil {
		return append(mws,
			Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
			Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
		)
	}

	if cfg.Telegram.AdminID != 0 {
		mws = append(mws, Middleware{
			Name: "admin",
			Use: middleware.AdminOnlyMiddleware(middleware.AdminOptions{
				AdminID:  cfg.Telegram.AdminID,
				OnReject: hooks.OnRejected,
			}),
		})
	}

	if interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond; interval > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  interval,
				Exclude:   ex,
				OnLimited: hooks.OnLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

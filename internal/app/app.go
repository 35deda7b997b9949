// Package app assembles the persona document, the generator, the dialog
// engine and the Telegram handlers into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/bootstrap"
	coreconfig "github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/logger"
	coretelegram "github.com/m3rciful/postbot/core/telegram"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/core/telegram/sender"
	"github.com/m3rciful/postbot/core/telegram/state"
	"github.com/m3rciful/postbot/internal/bot"
	"github.com/m3rciful/postbot/internal/dialog"
	"github.com/m3rciful/postbot/internal/generator"
	"github.com/m3rciful/postbot/internal/store"
)

const msgSlowDown = "Too many requests, please slow down."

// App owns everything the bot needs between start and shutdown.
type App struct {
	cfg      *coreconfig.Config
	boot     *bootstrap.Result
	backend  store.Backend
	doc      *store.Shared
	handlers *bot.Handlers

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

type options struct {
	provider generator.Provider
	send     bot.SendFunc
}

// Option customizes New.
type Option func(*options)

// WithProvider skips building a provider from configuration.
func WithProvider(p generator.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithSender replaces the Telegram delivery function of the handlers.
func WithSender(send bot.SendFunc) Option {
	return func(o *options) { o.send = send }
}

// New loads the document and wires the engine. boot may be nil for the file driver.
func New(ctx context.Context, cfg *coreconfig.Config, boot *bootstrap.Result, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := Backend(cfg, boot)
	if err != nil {
		return nil, err
	}
	doc, err := store.Open(ctx, backend)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	provider := o.provider
	if provider == nil {
		if provider, err = Provider(ctx, cfg.Generation); err != nil {
			return nil, err
		}
	}
	gen := generator.New(provider,
		generator.WithTimeout(time.Duration(cfg.Generation.TimeoutSeconds)*time.Second),
	)

	sessions, err := state.NewStore[dialog.Session](cfg.Storage.SessionCapacity)
	if err != nil {
		return nil, fmt.Errorf("app: session store: %w", err)
	}

	handlers := bot.New(dialog.New(doc, gen, sessions))
	if o.send != nil {
		handlers.WithSender(o.send)
	}

	snap := doc.Snapshot()
	logger.Info(ctx, "app", "wired",
		slog.String("storage", cfg.Storage.Driver),
		slog.String("provider", provider.Name()),
		slog.Int("post_types", snap.PostTypes.Len()),
		slog.Int("session_capacity", cfg.Storage.SessionCapacity),
	)

	return &App{
		cfg:      cfg,
		boot:     boot,
		backend:  backend,
		doc:      doc,
		handlers: handlers,
	}, nil
}

// Backend selects the document store for the configured driver.
func Backend(cfg *coreconfig.Config, boot *bootstrap.Result) (store.Backend, error) {
	switch cfg.Storage.Driver {
	case coreconfig.StoragePostgres:
		if boot == nil || boot.DB == nil {
			return nil, errors.New("app: postgres storage requires a database connection")
		}
		return store.NewPostgresStore(boot.DB, cfg.Storage.Document), nil
	case coreconfig.StorageFile, "":
		return store.NewFileStore(cfg.Storage.Path), nil
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Provider builds the generation provider named by gen.Provider.
func Provider(ctx context.Context, gen coreconfig.GenerationConfig) (generator.Provider, error) {
	switch gen.Provider {
	case coreconfig.ProviderOpenAI, "":
		return generator.NewOpenAI(gen.OpenAIKey, gen.Model), nil
	case coreconfig.ProviderGemini:
		p, err := generator.NewGemini(ctx, gen.GeminiKey, gen.Model, "")
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("app: unknown generation provider %q", gen.Provider)
	}
}

// Document returns the shared persona document.
func (a *App) Document() *store.Shared { return a.doc }

// TelegramRunOptions registers the bot's commands and callbacks and returns
// the options RunTelegram needs.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	return coretelegram.RunOptions{
		Config:            a.cfg,
		Registry:          reg,
		DispatcherOptions: sender.Options{MaxRetries: 3, MaxDuration: 30 * time.Second},
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, coretelegram.MiddlewareHooks{
			OnLimited: onLimited,
		}),
		Routes:  a.handlers.Routes(reg, a.cfg.Telegram.AdminID),
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return tghelpers.SendHTML(c, msgSlowDown, nil)
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	fs, ok := a.backend.(*store.FileStore)
	if !a.cfg.Storage.Watch || !ok {
		return nil
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	go func() {
		defer close(a.watchDone)
		err := fs.Watch(wctx, func() {
			if err := a.doc.Reload(wctx); err != nil {
				logger.Warn(wctx, "store", "reload.failed", slog.String("err", err.Error()))
			}
		})
		if err != nil {
			logger.Error(wctx, "store", "watch.failed",
				slog.String("path", fs.Path()),
				slog.String("err", err.Error()),
			)
		}
	}()
	logger.Info(ctx, "store", "watch.start", slog.String("path", fs.Path()))
	return nil
}

func (a *App) onStop(context.Context, coretelegram.Runtime) error {
	if a.watchCancel != nil {
		a.watchCancel()
		<-a.watchDone
		a.watchCancel = nil
	}
	return nil
}

// Close stops the watcher and releases the database handle.
func (a *App) Close() error {
	_ = a.onStop(context.Background(), coretelegram.Runtime{})
	return a.boot.Close()
}

// Show writes the stored document to w in its persisted JSON form.
func Show(ctx context.Context, cfg *coreconfig.Config, boot *bootstrap.Result, w io.Writer) error {
	backend, err := Backend(cfg, boot)
	if err != nil {
		return err
	}
	doc, err := backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("app: load document: %w", err)
	}
	data, err := store.Encode(doc)
	if err != nil {
		return fmt.Errorf("app: encode document: %w", err)
	}
	_, err = w.Write(data)
	return err
}

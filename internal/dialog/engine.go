// Package dialog is the transport-agnostic conversation state machine. It
// turns text messages and button actions into document mutations, post
// generations and outbound replies.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/format"
	"github.com/m3rciful/postbot/internal/catalog"
	"github.com/m3rciful/postbot/internal/generator"
	"github.com/m3rciful/postbot/internal/store"
)

// SessionStore keeps one Session per user.
type SessionStore interface {
	Get(userID int64) Session
	Set(userID int64, s Session)
}

// Generator produces posts. *generator.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Result, error)
}

// Input is an inbound text message. Spans refer to Text as received, untrimmed.
type Input struct {
	Text  string
	Spans []format.Span
}

// Engine drives the dialog. It is safe for concurrent use by different users.
type Engine struct {
	doc      *store.Shared
	gen      Generator
	sessions SessionStore
}

// New wires an engine.
func New(doc *store.Shared, gen Generator, sessions SessionStore) *Engine {
	return &Engine{doc: doc, gen: gen, sessions: sessions}
}

func reply(text string, rows ...[]Button) []Reply {
	return []Reply{{Text: text, Keyboard: rows}}
}

// InProgress reports whether the user's next text answers a pending question.
func (e *Engine) InProgress(userID int64) bool {
	return e.sessions.Get(userID).Pending.Kind != PendingNone
}

// Start begins the profile setup when the persona has no name yet.
func (e *Engine) Start(ctx context.Context, userID int64) []Reply {
	if e.doc.Snapshot().Profile.Name != "" {
		return reply(msgAlreadySetUp)
	}
	sess := e.sessions.Get(userID)
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingSetup, Field: FieldName})
	return reply(setupPrompts[FieldName])
}

// Menu returns the root menu.
func (e *Engine) Menu(context.Context, int64) []Reply {
	return reply(msgChooseOption,
		[]Button{{Label: "➕ Add post type", Action: ActionAddType}},
		[]Button{{Label: "➕ Add example", Action: ActionAddExample}},
		[]Button{{Label: "📝 Create post", Action: ActionCreatePost}},
		[]Button{{Label: "✏️ Edit profile", Action: ActionEditProfile}},
		[]Button{{Label: "🌐 Set language", Action: ActionSetLanguage}},
		[]Button{{Label: "✏️ Manage post types", Action: ActionManageTypes}},
	)
}

// HandleText answers the pending question, if any. A non-nil error means the
// document could not be saved; the replies then carry a generic failure message.
func (e *Engine) HandleText(ctx context.Context, userID int64, in Input) ([]Reply, error) {
	sess := e.sessions.Get(userID)
	p := sess.Pending
	text := strings.TrimSpace(in.Text)

	logger.Debug(ctx, "dialog", "text",
		slog.String("pending", p.Kind.String()),
		slog.String("post_type", p.Type),
		slog.String("field", string(p.Field)),
	)

	switch p.Kind {
	case PendingTopic:
		sess.Pending = Pending{}
		e.sessions.Set(userID, sess)
		return e.generate(ctx, userID, p.Type, text, -1)
	case PendingExample:
		return e.addExample(ctx, userID, sess, in)
	case PendingSetup:
		return e.answerSetup(ctx, userID, sess, text)
	case PendingTypeName:
		return e.createType(ctx, userID, sess, text)
	case PendingField:
		return e.editField(ctx, userID, sess, text)
	case PendingRename:
		return e.renameType(ctx, userID, sess, text)
	case PendingEditExample:
		return e.editExample(ctx, userID, sess, in)
	default:
		return reply(msgUnrecognized), nil
	}
}

func (e *Engine) setPending(ctx context.Context, userID int64, sess *Session, p Pending) {
	sess.Pending = p
	e.sessions.Set(userID, *sess)
	logger.Debug(ctx, "dialog", "pending.set",
		slog.String("pending", p.Kind.String()),
		slog.String("post_type", p.Type),
		slog.String("field", string(p.Field)),
	)
}

func (e *Engine) clearPending(userID int64, sess *Session) {
	sess.Pending = Pending{}
	e.sessions.Set(userID, *sess)
}

// failure logs err and answers with the generic failure message.
func (e *Engine) failure(ctx context.Context, op string, err error) ([]Reply, error) {
	logger.Error(ctx, "dialog", "mutation.failed",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return reply(msgFailure), fmt.Errorf("dialog %s: %w", op, err)
}

func (e *Engine) mutateCatalog(ctx context.Context, fn func(c catalog.Catalog) error) error {
	return e.doc.Update(ctx, func(d *store.Document) error {
		return fn(catalog.New(&d.PostTypes))
	})
}

func (e *Engine) mutateProfile(ctx context.Context, fn func(p *store.Profile)) error {
	return e.doc.Update(ctx, func(d *store.Document) error {
		fn(&d.Profile)
		return nil
	})
}

func splitServices(text string) []string {
	services := []string{}
	for _, s := range strings.Split(text, ",") {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	return services
}

func setField(p *store.Profile, f Field, text string) {
	switch f {
	case FieldName:
		p.Name = text
	case FieldTag:
		p.Tag = text
	case FieldPersonality:
		p.Personality = text
	case FieldServices:
		p.Services = splitServices(text)
	case FieldLanguage:
		p.Language = text
	}
}

func (e *Engine) answerSetup(ctx context.Context, userID int64, sess Session, text string) ([]Reply, error) {
	field := sess.Pending.Field
	if err := e.mutateProfile(ctx, func(p *store.Profile) { setField(p, field, text) }); err != nil {
		return e.failure(ctx, "setup", err)
	}

	next := nextSetupField(field)
	if next == "" {
		e.clearPending(userID, &sess)
		logger.Info(ctx, "dialog", "setup.complete")
		return reply(msgSetupDone), nil
	}
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingSetup, Field: next})
	return reply(setupPrompts[next]), nil
}

func nextSetupField(f Field) Field {
	for i, v := range setupOrder {
		if v == f && i+1 < len(setupOrder) {
			return setupOrder[i+1]
		}
	}
	return ""
}

func (e *Engine) editField(ctx context.Context, userID int64, sess Session, text string) ([]Reply, error) {
	field := sess.Pending.Field
	if err := e.mutateProfile(ctx, func(p *store.Profile) { setField(p, field, text) }); err != nil {
		return e.failure(ctx, "edit_field", err)
	}
	e.clearPending(userID, &sess)
	return reply(msgFieldUpdated(field)), nil
}

func (e *Engine) createType(ctx context.Context, userID int64, sess Session, text string) ([]Reply, error) {
	name := catalog.NormalizeName(text)
	err := e.mutateCatalog(ctx, func(c catalog.Catalog) error { return c.CreateType(name) })
	switch {
	case errors.Is(err, catalog.ErrDuplicateName):
		return reply(msgDuplicateType), nil
	case errors.Is(err, catalog.ErrInvalidName):
		return reply(msgInvalidTypeName), nil
	case err != nil:
		return e.failure(ctx, "create_type", err)
	}
	e.clearPending(userID, &sess)
	logger.Info(ctx, "dialog", "type.created", slog.String("post_type", name))
	return reply(msgTypeAdded(name)), nil
}

func (e *Engine) renameType(ctx context.Context, userID int64, sess Session, text string) ([]Reply, error) {
	old := sess.Pending.Type
	name := catalog.NormalizeName(text)
	err := e.mutateCatalog(ctx, func(c catalog.Catalog) error { return c.RenameType(old, name) })
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		sess.Selected = ""
		e.clearPending(userID, &sess)
		return reply(msgTypeNotFound), nil
	case errors.Is(err, catalog.ErrDuplicateName):
		return reply(msgDuplicateType), nil
	case errors.Is(err, catalog.ErrInvalidName):
		return reply(msgInvalidTypeName), nil
	case err != nil:
		return e.failure(ctx, "rename_type", err)
	}
	sess.Selected = name
	e.clearPending(userID, &sess)
	logger.Info(ctx, "dialog", "type.renamed", slog.String("post_type", name), slog.String("from", old))
	return reply(msgTypeRenamed(name)), nil
}

// exampleHTML renders an inbound message as example markup.
func exampleHTML(in Input) (string, error) {
	html, err := format.ToHTML(in.Text, in.Spans)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(html), nil
}

func (e *Engine) addExample(ctx context.Context, userID int64, sess Session, in Input) ([]Reply, error) {
	name := sess.Pending.Type
	html, err := exampleHTML(in)
	if err != nil {
		return reply(msgBadFormatting), nil
	}
	err = e.mutateCatalog(ctx, func(c catalog.Catalog) error { return c.AddExample(name, html) })
	switch {
	case errors.Is(err, catalog.ErrEmptyExample):
		return reply(msgEmptyExample), nil
	case errors.Is(err, catalog.ErrNotFound):
		e.clearPending(userID, &sess)
		return reply(msgTypeNotFound), nil
	case errors.Is(err, catalog.ErrDuplicateExample):
		e.clearPending(userID, &sess)
		return reply(msgDuplicateExample), nil
	case err != nil:
		return e.failure(ctx, "add_example", err)
	}
	e.clearPending(userID, &sess)
	logger.Info(ctx, "dialog", "example.added", slog.String("post_type", name))
	return reply(msgExampleAdded(name)), nil
}

func (e *Engine) editExample(ctx context.Context, userID int64, sess Session, in Input) ([]Reply, error) {
	name, idx := sess.Pending.Type, sess.Pending.Index
	html, err := exampleHTML(in)
	if err != nil {
		return reply(msgBadFormatting), nil
	}
	err = e.mutateCatalog(ctx, func(c catalog.Catalog) error {
		current, err := c.Example(name, idx)
		if err != nil {
			return err
		}
		if current != sess.Pending.Example {
			return catalog.ErrIndexOutOfRange
		}
		return c.EditExample(name, idx, html)
	})
	switch {
	case errors.Is(err, catalog.ErrEmptyExample):
		return reply(msgEmptyExample), nil
	case errors.Is(err, catalog.ErrNotFound):
		e.clearPending(userID, &sess)
		return reply(msgTypeNotFound), nil
	case errors.Is(err, catalog.ErrIndexOutOfRange):
		e.clearPending(userID, &sess)
		return reply(msgExampleNotFound), nil
	case errors.Is(err, catalog.ErrDuplicateExample):
		e.clearPending(userID, &sess)
		return reply(msgDuplicateExample), nil
	case err != nil:
		return e.failure(ctx, "edit_example", err)
	}
	e.clearPending(userID, &sess)
	return reply(msgExampleUpdated), nil
}

// generate runs one generation for postType and remembers the result for accept/rewrite.
func (e *Engine) generate(ctx context.Context, userID int64, postType, topic string, exclude int) ([]Reply, error) {
	doc := e.doc.Snapshot()
	examples, err := catalog.New(&doc.PostTypes).Examples(postType)
	if errors.Is(err, catalog.ErrNotFound) {
		return reply(msgTypeNotFound), nil
	}

	res, err := e.gen.Generate(ctx, generator.Request{
		Profile:  doc.Profile,
		Examples: examples,
		Topic:    topic,
		Exclude:  exclude,
		PostType: postType,
	})
	if errors.Is(err, generator.ErrNoExamples) {
		return reply(msgNoExamples), nil
	}
	if err != nil {
		return nil, fmt.Errorf("generate %q: %w", postType, err)
	}

	text := format.SanitizeHTML(res.Text)
	if res.Failed {
		text = format.Escape(res.Text)
	}
	if strings.TrimSpace(text) == "" {
		text = format.Escape(generator.FailurePrefix + "empty response")
	}
	sess := e.sessions.Get(userID)
	sess.Last = &GeneratedPost{Type: postType, Topic: topic, Text: text, Index: res.Index}
	e.sessions.Set(userID, sess)

	return reply(text, []Button{
		{Label: "✅ Accept", Action: ActionAcceptPost},
		{Label: "♻️ Rewrite", Action: ActionRewritePost},
	}), nil
}

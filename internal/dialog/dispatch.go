package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/format"
	"github.com/m3rciful/postbot/internal/catalog"
)

type actionFunc func(e *Engine, ctx context.Context, userID int64, payload string) ([]Reply, error)

var dispatch = map[string]actionFunc{
	ActionMenu: func(e *Engine, ctx context.Context, userID int64, _ string) ([]Reply, error) {
		return e.Menu(ctx, userID), nil
	},
	ActionAddType:       (*Engine).askTypeName,
	ActionAddExample:    (*Engine).listForExample,
	ActionExampleFor:    (*Engine).askExample,
	ActionCreatePost:    (*Engine).listForPost,
	ActionPostFor:       (*Engine).askTopic,
	ActionEditProfile:   (*Engine).listFields,
	ActionEditField:     (*Engine).askField,
	ActionSetLanguage:   (*Engine).askLanguage,
	ActionManageTypes:   (*Engine).listForManage,
	ActionManageType:    (*Engine).openType,
	ActionRenameType:    (*Engine).askRename,
	ActionDeleteType:    (*Engine).askDelete,
	ActionConfirmDelete: (*Engine).confirmDelete,
	ActionCancelDelete:  (*Engine).cancelDelete,
	ActionListExamples:  (*Engine).listExamples,
	ActionPickExample:   (*Engine).pickExample,
	ActionEditExample:   (*Engine).askExampleText,
	ActionDeleteExample: (*Engine).deleteExample,
	ActionAcceptPost:    (*Engine).acceptPost,
	ActionRewritePost:   (*Engine).rewritePost,
}

// HandleAction runs the handler registered for action. Errors follow HandleText.
func (e *Engine) HandleAction(ctx context.Context, userID int64, action, payload string) ([]Reply, error) {
	fn, ok := dispatch[action]
	if !ok {
		logger.Warn(ctx, "dialog", "action.unknown", slog.String("action", action))
		return reply(msgUnsupported), nil
	}
	logger.Debug(ctx, "dialog", "action",
		slog.String("action", action),
		slog.String("payload", logger.SanitizeLimit(payload, 64)),
	)
	return fn(e, ctx, userID, payload)
}

func (e *Engine) typeButtons(action string) [][]Button {
	names := e.doc.Snapshot().PostTypes.Names()
	rows := make([][]Button, 0, len(names))
	for _, n := range names {
		rows = append(rows, []Button{{Label: n, Action: action, Payload: n}})
	}
	return rows
}

func (e *Engine) hasType(name string) bool {
	doc := e.doc.Snapshot()
	return catalog.New(&doc.PostTypes).Has(name)
}

func (e *Engine) askTypeName(ctx context.Context, userID int64, _ string) ([]Reply, error) {
	sess := e.sessions.Get(userID)
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingTypeName})
	return reply(msgAskTypeName), nil
}

func (e *Engine) listForExample(_ context.Context, _ int64, _ string) ([]Reply, error) {
	rows := e.typeButtons(ActionExampleFor)
	if len(rows) == 0 {
		return reply(msgNoTypes), nil
	}
	return reply(msgChooseTypeAdd, rows...), nil
}

func (e *Engine) askExample(ctx context.Context, userID int64, name string) ([]Reply, error) {
	if !e.hasType(name) {
		return reply(msgTypeNotFound), nil
	}
	sess := e.sessions.Get(userID)
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingExample, Type: name})
	return reply(msgAskExample(name)), nil
}

func (e *Engine) listForPost(_ context.Context, _ int64, _ string) ([]Reply, error) {
	rows := e.typeButtons(ActionPostFor)
	if len(rows) == 0 {
		return reply(msgNoTypes), nil
	}
	return reply(msgChooseTypePost, rows...), nil
}

func (e *Engine) askTopic(ctx context.Context, userID int64, name string) ([]Reply, error) {
	if !e.hasType(name) {
		return reply(msgTypeNotFound), nil
	}
	sess := e.sessions.Get(userID)
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingTopic, Type: name})
	return reply(msgAskTopic(name)), nil
}

func (e *Engine) listFields(_ context.Context, _ int64, _ string) ([]Reply, error) {
	var rows [][]Button
	for _, f := range []Field{FieldName, FieldTag, FieldPersonality, FieldServices} {
		rows = append(rows, []Button{{Label: fieldLabels[f], Action: ActionEditField, Payload: string(f)}})
	}
	return reply(msgChooseField, rows...), nil
}

func (e *Engine) askField(ctx context.Context, userID int64, payload string) ([]Reply, error) {
	f := Field(payload)
	if !validField(f) {
		return reply(msgUnsupported), nil
	}
	sess := e.sessions.Get(userID)
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingField, Field: f})
	return reply(editPrompts[f]), nil
}

func (e *Engine) askLanguage(ctx context.Context, userID int64, _ string) ([]Reply, error) {
	return e.askField(ctx, userID, string(FieldLanguage))
}

func (e *Engine) listForManage(_ context.Context, _ int64, _ string) ([]Reply, error) {
	rows := e.typeButtons(ActionManageType)
	if len(rows) == 0 {
		return reply(msgNoTypesToManage), nil
	}
	return reply(msgChooseTypeManage, rows...), nil
}

func (e *Engine) openType(_ context.Context, userID int64, name string) ([]Reply, error) {
	if !e.hasType(name) {
		return reply(msgTypeNotFound), nil
	}
	sess := e.sessions.Get(userID)
	sess.Selected = name
	e.sessions.Set(userID, sess)
	return reply(msgTypeOptions(name),
		[]Button{{Label: "Rename", Action: ActionRenameType}},
		[]Button{{Label: "Delete", Action: ActionDeleteType}},
		[]Button{{Label: "View examples", Action: ActionListExamples}},
	), nil
}

// selected returns the post type opened in the manage submenu, if it still exists.
func (e *Engine) selected(userID int64) (Session, bool) {
	sess := e.sessions.Get(userID)
	return sess, sess.Selected != "" && e.hasType(sess.Selected)
}

func (e *Engine) askRename(ctx context.Context, userID int64, _ string) ([]Reply, error) {
	sess, ok := e.selected(userID)
	if !ok {
		return reply(msgTypeNotFound), nil
	}
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingRename, Type: sess.Selected})
	return reply(msgAskRename), nil
}

func (e *Engine) askDelete(_ context.Context, userID int64, _ string) ([]Reply, error) {
	sess, ok := e.selected(userID)
	if !ok {
		return reply(msgTypeNotFound), nil
	}
	return reply(msgConfirmDelete(sess.Selected),
		[]Button{{Label: "Yes, delete", Action: ActionConfirmDelete}},
		[]Button{{Label: "No", Action: ActionCancelDelete}},
	), nil
}

func (e *Engine) confirmDelete(ctx context.Context, userID int64, _ string) ([]Reply, error) {
	sess := e.sessions.Get(userID)
	name := sess.Selected
	err := e.mutateCatalog(ctx, func(c catalog.Catalog) error { return c.DeleteType(name) })
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		sess.Selected = ""
		e.sessions.Set(userID, sess)
		return reply(msgTypeNotFound), nil
	case err != nil:
		return e.failure(ctx, "delete_type", err)
	}
	sess.Selected = ""
	e.sessions.Set(userID, sess)
	logger.Info(ctx, "dialog", "type.deleted", slog.String("post_type", name))
	return reply(msgTypeDeleted(name)), nil
}

func (e *Engine) cancelDelete(_ context.Context, userID int64, _ string) ([]Reply, error) {
	sess := e.sessions.Get(userID)
	sess.Selected = ""
	e.sessions.Set(userID, sess)
	return reply(msgDeleteCancelled), nil
}

func (e *Engine) listExamples(_ context.Context, userID int64, _ string) ([]Reply, error) {
	sess := e.sessions.Get(userID)
	doc := e.doc.Snapshot()
	examples, err := catalog.New(&doc.PostTypes).Examples(sess.Selected)
	if err != nil {
		return reply(msgTypeNotFound), nil
	}
	if len(examples) == 0 {
		return reply(msgNoExamplesToList), nil
	}
	rows := make([][]Button, 0, len(examples))
	for i, ex := range examples {
		label := strconv.Itoa(i+1) + ". " + format.PlainPreview(ex, 20)
		rows = append(rows, []Button{{Label: label, Action: ActionPickExample, Payload: exampleRef(sess.Selected, i, ex)}})
	}
	return reply(msgChooseExample, rows...), nil
}

// example resolves an example reference against the selected post type.
func (e *Engine) example(userID int64, payload string) (Session, int, string, error) {
	sess := e.sessions.Get(userID)
	doc := e.doc.Snapshot()
	idx, text, err := resolveExample(catalog.New(&doc.PostTypes), sess.Selected, payload)
	return sess, idx, text, err
}

func notFoundReply(err error) []Reply {
	if errors.Is(err, catalog.ErrNotFound) {
		return reply(msgTypeNotFound)
	}
	return reply(msgExampleNotFound)
}

func (e *Engine) pickExample(_ context.Context, userID int64, payload string) ([]Reply, error) {
	sess, idx, text, err := e.example(userID, payload)
	if err != nil {
		return notFoundReply(err), nil
	}
	ref := exampleRef(sess.Selected, idx, text)
	return reply(msgSelectedExample(text),
		[]Button{{Label: "Edit", Action: ActionEditExample, Payload: ref}},
		[]Button{{Label: "Delete", Action: ActionDeleteExample, Payload: ref}},
	), nil
}

func (e *Engine) askExampleText(ctx context.Context, userID int64, payload string) ([]Reply, error) {
	sess, idx, text, err := e.example(userID, payload)
	if err != nil {
		return notFoundReply(err), nil
	}
	e.setPending(ctx, userID, &sess, Pending{Kind: PendingEditExample, Type: sess.Selected, Index: idx, Example: text})
	return reply(msgAskExampleText), nil
}

func (e *Engine) deleteExample(ctx context.Context, userID int64, payload string) ([]Reply, error) {
	sess := e.sessions.Get(userID)
	var (
		idx     int
		removed string
	)
	err := e.mutateCatalog(ctx, func(c catalog.Catalog) error {
		var err error
		if idx, removed, err = resolveExample(c, sess.Selected, payload); err != nil {
			return err
		}
		return c.DeleteExample(sess.Selected, idx)
	})
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrIndexOutOfRange):
		return notFoundReply(err), nil
	case err != nil:
		return e.failure(ctx, "delete_example", err)
	}
	logger.Info(ctx, "dialog", "example.deleted",
		slog.String("post_type", sess.Selected),
		slog.Int("example_index", idx),
	)
	return reply(msgExampleDeleted(removed)), nil
}

func (e *Engine) acceptPost(ctx context.Context, userID int64, _ string) ([]Reply, error) {
	sess := e.sessions.Get(userID)
	if sess.Last == nil {
		return reply(msgNothingToAccept), nil
	}
	text := sess.Last.Text
	sess.Last = nil
	e.sessions.Set(userID, sess)
	logger.Info(ctx, "dialog", "post.accepted")
	return reply(msgAccepted(text)), nil
}

func (e *Engine) rewritePost(ctx context.Context, userID int64, _ string) ([]Reply, error) {
	last := e.sessions.Get(userID).Last
	if last == nil {
		return reply(msgNothingToRewrite), nil
	}
	return e.generate(ctx, userID, last.Type, last.Topic, last.Index)
}

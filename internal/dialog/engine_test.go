package dialog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/postbot/core/telegram/format"
	"github.com/m3rciful/postbot/core/telegram/keyboard"
	"github.com/m3rciful/postbot/core/telegram/state"
	"github.com/m3rciful/postbot/internal/catalog"
	"github.com/m3rciful/postbot/internal/generator"
	"github.com/m3rciful/postbot/internal/store"
)

const user = int64(42)

type memBackend struct {
	mu      sync.Mutex
	doc     *store.Document
	saveErr error
}

func (m *memBackend) Load(context.Context) (*store.Document, error) {
	return store.DefaultDocument(), nil
}

func (m *memBackend) Save(_ context.Context, doc *store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = doc.Clone()
	return nil
}

type recordingProvider struct {
	calls   int
	prompts []string
	system  string
	reply   string
	err     error
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Complete(_ context.Context, system, prompt string) (string, error) {
	p.calls++
	p.system = system
	p.prompts = append(p.prompts, prompt)
	return p.reply, p.err
}

type fixture struct {
	engine   *Engine
	backend  *memBackend
	shared   *store.Shared
	provider *recordingProvider
	sessions *state.Store[Session]
}

func newFixture(t *testing.T, opts ...generator.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	backend := &memBackend{}
	shared, err := store.Open(ctx, backend)
	require.NoError(t, err)
	sessions, err := state.NewStore[Session](16)
	require.NoError(t, err)
	provider := &recordingProvider{reply: "<b>Launch</b> day"}
	return &fixture{
		engine:   New(shared, generator.New(provider, opts...), sessions),
		backend:  backend,
		shared:   shared,
		provider: provider,
		sessions: sessions,
	}
}

func (f *fixture) text(t *testing.T, text string) []Reply {
	t.Helper()
	replies, err := f.engine.HandleText(context.Background(), user, Input{Text: text})
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	return replies
}

func (f *fixture) action(t *testing.T, action, payload string) []Reply {
	t.Helper()
	replies, err := f.engine.HandleAction(context.Background(), user, action, payload)
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	return replies
}

func (f *fixture) addType(t *testing.T, name string, examples ...string) {
	t.Helper()
	f.action(t, ActionAddType, "")
	f.text(t, name)
	for _, ex := range examples {
		f.action(t, ActionExampleFor, name)
		f.text(t, ex)
	}
}

func (f *fixture) examples(t *testing.T, name string) []string {
	t.Helper()
	doc := f.shared.Snapshot()
	pt, ok := doc.PostTypes.Get(name)
	require.True(t, ok, "post type %q missing", name)
	return pt.Examples
}

func actions(r Reply) []string {
	var out []string
	for _, row := range r.Keyboard {
		for _, b := range row {
			out = append(out, b.Action+"|"+b.Payload)
		}
	}
	return out
}

func TestProfileSetupScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	replies := f.engine.Start(ctx, user)
	assert.Equal(t, msgWelcome, replies[0].Text)
	assert.True(t, f.engine.InProgress(user))

	f.text(t, "Aria")
	f.text(t, "@aria_bot")
	f.text(t, "witty and warm")
	f.text(t, "coaching, , consulting ")
	last := f.text(t, "English")

	assert.Equal(t, msgSetupDone, last[0].Text)
	assert.False(t, f.engine.InProgress(user))
	assert.Equal(t, store.Profile{
		Name:        "Aria",
		Tag:         "@aria_bot",
		Personality: "witty and warm",
		Services:    []string{"coaching", "consulting"},
		Language:    "English",
	}, f.shared.Snapshot().Profile)
	assert.Equal(t, "English", f.backend.doc.Profile.Language)

	again := f.engine.Start(ctx, user)
	assert.Equal(t, msgAlreadySetUp, again[0].Text)
	assert.False(t, f.engine.InProgress(user))
}

func TestSetupPersistsEachStep(t *testing.T) {
	f := newFixture(t)
	f.engine.Start(context.Background(), user)

	f.text(t, "Aria")
	assert.Equal(t, "Aria", f.backend.doc.Profile.Name)
	assert.Equal(t, Pending{Kind: PendingSetup, Field: FieldTag}, f.sessions.Get(user).Pending)
}

func TestCreatePostScenario(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "Promo")

	f.action(t, ActionExampleFor, "promo")
	f.engine.HandleText(context.Background(), user, Input{
		Text:  "Hello world",
		Spans: []format.Span{{Offset: 6, Length: 5, Kind: format.Bold}},
	})
	assert.Equal(t, []string{"Hello <b>world</b>"}, f.examples(t, "promo"))

	f.action(t, ActionPostFor, "promo")
	assert.True(t, f.engine.InProgress(user))
	replies := f.text(t, "launch")

	require.Len(t, f.provider.prompts, 1)
	assert.Contains(t, f.provider.prompts[0], "Hello <b>world</b>")
	assert.Contains(t, f.provider.prompts[0], "launch")
	assert.Equal(t, "<b>Launch</b> day", replies[0].Text)
	assert.Equal(t, []string{ActionAcceptPost + "|", ActionRewritePost + "|"}, actions(replies[0]))

	sess := f.sessions.Get(user)
	assert.Equal(t, PendingNone, sess.Pending.Kind)
	require.NotNil(t, sess.Last)
	assert.Equal(t, GeneratedPost{Type: "promo", Topic: "launch", Text: "<b>Launch</b> day", Index: 0}, *sess.Last)
}

func TestRewriteExcludesPreviousExample(t *testing.T) {
	f := newFixture(t, generator.WithRand(func(int) int { return 0 }))
	f.addType(t, "promo", "first", "second")

	f.action(t, ActionPostFor, "promo")
	f.text(t, "launch")
	assert.Equal(t, 0, f.sessions.Get(user).Last.Index)

	f.action(t, ActionRewritePost, "")
	assert.Equal(t, 1, f.sessions.Get(user).Last.Index)
	require.Len(t, f.provider.prompts, 2)
	assert.Contains(t, f.provider.prompts[1], "Example: second")
	assert.Contains(t, f.provider.prompts[1], "Topic: launch")

	f.action(t, ActionRewritePost, "")
	assert.Equal(t, 0, f.sessions.Get(user).Last.Index)
}

func TestAcceptPostEchoesAndClears(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo", "only")
	f.action(t, ActionPostFor, "promo")
	f.text(t, "launch")

	replies := f.action(t, ActionAcceptPost, "")
	assert.Equal(t, "Post accepted:\n\n<b>Launch</b> day", replies[0].Text)
	assert.Nil(t, f.sessions.Get(user).Last)

	assert.Equal(t, msgNothingToAccept, f.action(t, ActionAcceptPost, "")[0].Text)
	assert.Equal(t, msgNothingToRewrite, f.action(t, ActionRewritePost, "")[0].Text)
}

func TestGenerateWithoutExamplesSkipsProvider(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "empty")

	f.action(t, ActionPostFor, "empty")
	replies := f.text(t, "launch")

	assert.Equal(t, msgNoExamples, replies[0].Text)
	assert.Zero(t, f.provider.calls)
}

func TestProviderFailureIsShownAsText(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("rate <limited>")
	f.addType(t, "promo", "one")

	f.action(t, ActionPostFor, "promo")
	replies := f.text(t, "launch")

	assert.Equal(t, "An error occurred while generating the post: rate &lt;limited&gt;", replies[0].Text)
	assert.NotNil(t, f.sessions.Get(user).Last)
}

func TestCreateTypeDuplicateKeepsPrompt(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo")

	f.action(t, ActionAddType, "")
	replies := f.text(t, "  PROMO ")
	assert.Equal(t, msgDuplicateType, replies[0].Text)
	assert.Equal(t, PendingTypeName, f.sessions.Get(user).Pending.Kind)

	f.text(t, "tips")
	assert.Equal(t, []string{"promo", "tips"}, f.shared.Snapshot().PostTypes.Names())
	assert.False(t, f.engine.InProgress(user))
}

func TestAddExampleDuplicateIsRejected(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo", "same")

	f.action(t, ActionExampleFor, "promo")
	replies := f.text(t, "same")

	assert.Equal(t, msgDuplicateExample, replies[0].Text)
	assert.Equal(t, []string{"same"}, f.examples(t, "promo"))
	assert.False(t, f.engine.InProgress(user))
}

func TestAddExampleOverlappingSpansKeepsPrompt(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo")
	f.action(t, ActionExampleFor, "promo")

	replies, err := f.engine.HandleText(context.Background(), user, Input{
		Text: "Hello world",
		Spans: []format.Span{
			{Offset: 0, Length: 11, Kind: format.Bold},
			{Offset: 6, Length: 5, Kind: format.Italic},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, msgBadFormatting, replies[0].Text)
	assert.Equal(t, PendingExample, f.sessions.Get(user).Pending.Kind)
	assert.Empty(t, f.examples(t, "promo"))
}

func TestEditProfileField(t *testing.T) {
	f := newFixture(t)

	menu := f.action(t, ActionEditProfile, "")
	assert.Contains(t, actions(menu[0]), ActionEditField+"|services")

	f.action(t, ActionEditField, "services")
	replies := f.text(t, "a, b")
	assert.Equal(t, "Services updated.", replies[0].Text)
	assert.Equal(t, []string{"a", "b"}, f.shared.Snapshot().Profile.Services)

	f.action(t, ActionSetLanguage, "")
	f.text(t, "German")
	assert.Equal(t, "German", f.shared.Snapshot().Profile.Language)

	assert.Equal(t, msgUnsupported, f.action(t, ActionEditField, "age")[0].Text)
}

func TestManageRenameAndDelete(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo", "one", "two")
	f.addType(t, "tips")

	f.action(t, ActionManageType, "promo")
	f.action(t, ActionRenameType, "")
	assert.Equal(t, "The post type was renamed to 'offers'.", f.text(t, "Offers")[0].Text)
	assert.Equal(t, []string{"offers", "tips"}, f.shared.Snapshot().PostTypes.Names())
	assert.Equal(t, []string{"one", "two"}, f.examples(t, "offers"))
	assert.Equal(t, "offers", f.sessions.Get(user).Selected)

	confirm := f.action(t, ActionDeleteType, "")
	assert.Equal(t, []string{ActionConfirmDelete + "|", ActionCancelDelete + "|"}, actions(confirm[0]))
	assert.Equal(t, "Post type 'offers' deleted.", f.action(t, ActionConfirmDelete, "")[0].Text)
	assert.Equal(t, []string{"tips"}, f.shared.Snapshot().PostTypes.Names())
	assert.Empty(t, f.sessions.Get(user).Selected)
}

func TestRenameVanishedTypeFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo")
	f.action(t, ActionManageType, "promo")
	f.action(t, ActionRenameType, "")

	// Another conversation deletes the type meanwhile.
	other := int64(7)
	_, err := f.engine.HandleAction(context.Background(), other, ActionManageType, "promo")
	require.NoError(t, err)
	_, err = f.engine.HandleAction(context.Background(), other, ActionConfirmDelete, "")
	require.NoError(t, err)

	replies := f.text(t, "offers")
	assert.Equal(t, msgTypeNotFound, replies[0].Text)
	assert.Equal(t, 0, f.shared.Snapshot().PostTypes.Len())
	assert.False(t, f.engine.InProgress(user))
}

func TestEditExampleStaleIndexFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo", "a", "b")
	f.action(t, ActionManageType, "promo")

	list := f.action(t, ActionListExamples, "")
	assert.Equal(t, []string{
		ActionPickExample + "|" + exampleRef("promo", 0, "a"),
		ActionPickExample + "|" + exampleRef("promo", 1, "b"),
	}, actions(list[0]))
	assert.Equal(t, "2. b", list[0].Keyboard[1][0].Label)

	f.action(t, ActionEditExample, exampleRef("promo", 1, "b"))
	assert.Equal(t, Pending{Kind: PendingEditExample, Type: "promo", Index: 1, Example: "b"}, f.sessions.Get(user).Pending)

	f.action(t, ActionDeleteExample, exampleRef("promo", 1, "b"))
	replies := f.text(t, "b2")

	assert.Equal(t, msgExampleNotFound, replies[0].Text)
	assert.Equal(t, []string{"a"}, f.examples(t, "promo"))
	assert.False(t, f.engine.InProgress(user))
}

func TestEditExampleFailsWhenListShifted(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo", "a", "b", "c")
	f.action(t, ActionManageType, "promo")
	f.action(t, ActionEditExample, exampleRef("promo", 1, "b"))

	// another operator removes the first example; index 1 now holds "c"
	other := int64(7)
	ctx := context.Background()
	_, err := f.engine.HandleAction(ctx, other, ActionManageType, "promo")
	require.NoError(t, err)
	_, err = f.engine.HandleAction(ctx, other, ActionDeleteExample, exampleRef("promo", 0, "a"))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, f.examples(t, "promo"))

	replies := f.text(t, "B2")

	assert.Equal(t, msgExampleNotFound, replies[0].Text)
	assert.Equal(t, []string{"b", "c"}, f.examples(t, "promo"))
	assert.False(t, f.engine.InProgress(user))
}

func TestStaleExampleButtonOfOtherTypeFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo", "a0", "a1")
	f.addType(t, "tips", "b0")

	f.action(t, ActionManageType, "promo")
	list := f.action(t, ActionListExamples, "")
	staleRef := list[0].Keyboard[0][0].Payload
	f.action(t, ActionManageType, "tips")

	assert.Equal(t, msgExampleNotFound, f.action(t, ActionPickExample, staleRef)[0].Text)
	assert.Equal(t, msgExampleNotFound, f.action(t, ActionEditExample, staleRef)[0].Text)
	assert.Equal(t, msgExampleNotFound, f.action(t, ActionDeleteExample, staleRef)[0].Text)

	assert.Equal(t, []string{"a0", "a1"}, f.examples(t, "promo"))
	assert.Equal(t, []string{"b0"}, f.examples(t, "tips"))
	assert.False(t, f.engine.InProgress(user))
}

func TestEditAndDeleteExample(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "promo", "a <b>x</b>", "b")
	f.action(t, ActionManageType, "promo")

	picked := f.action(t, ActionPickExample, exampleRef("promo", 0, "a <b>x</b>"))
	assert.Equal(t, "Selected example:\na <b>x</b>\nWhat do you want to do?", picked[0].Text)
	assert.Equal(t, []string{
		ActionEditExample + "|" + exampleRef("promo", 0, "a <b>x</b>"),
		ActionDeleteExample + "|" + exampleRef("promo", 0, "a <b>x</b>"),
	}, actions(picked[0]))

	f.action(t, ActionEditExample, exampleRef("promo", 0, "a <b>x</b>"))
	assert.Equal(t, msgExampleUpdated, f.text(t, "c")[0].Text)
	assert.Equal(t, []string{"c", "b"}, f.examples(t, "promo"))

	assert.Equal(t, "Example deleted:\nc", f.action(t, ActionDeleteExample, exampleRef("promo", 0, "c"))[0].Text)
	assert.Equal(t, []string{"b"}, f.examples(t, "promo"))

	assert.Equal(t, msgExampleNotFound, f.action(t, ActionPickExample, exampleRef("promo", 9, "b"))[0].Text)
	assert.Equal(t, msgExampleNotFound, f.action(t, ActionDeleteExample, "x")[0].Text)
	assert.Equal(t, msgExampleNotFound, f.action(t, ActionDeleteExample, "0")[0].Text)
}

func TestExampleRefFitsCallbackData(t *testing.T) {
	name := strings.Repeat("n", catalog.MaxNameBytes)
	data := "\f" + ActionDeleteExample + "|" + exampleRef(name, 999, "text")
	assert.LessOrEqual(t, len(data), keyboard.MaxCallbackData)

	idx, digest, err := parseExampleRef(exampleRef(name, 12, "text"))
	require.NoError(t, err)
	assert.Equal(t, 12, idx)
	assert.Equal(t, exampleDigest(name, "text"), digest)
	assert.NotEqual(t, exampleDigest("promo", "text"), exampleDigest("tips", "text"))
}

func TestSaveFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.engine.Start(context.Background(), user)
	f.backend.saveErr = errors.New("read-only filesystem")

	replies, err := f.engine.HandleText(context.Background(), user, Input{Text: "Aria"})
	require.Error(t, err)
	assert.ErrorIs(t, err, f.backend.saveErr)
	assert.Equal(t, msgFailure, replies[0].Text)
	assert.Empty(t, f.shared.Snapshot().Profile.Name)
	assert.Equal(t, Pending{Kind: PendingSetup, Field: FieldName}, f.sessions.Get(user).Pending)

	f.backend.saveErr = nil
	f.text(t, "Aria")
	assert.Equal(t, "Aria", f.shared.Snapshot().Profile.Name)
}

func TestListsWithoutTypes(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, msgNoTypes, f.action(t, ActionAddExample, "")[0].Text)
	assert.Equal(t, msgNoTypes, f.action(t, ActionCreatePost, "")[0].Text)
	assert.Equal(t, msgNoTypesToManage, f.action(t, ActionManageTypes, "")[0].Text)
	assert.Equal(t, msgTypeNotFound, f.action(t, ActionPostFor, "ghost")[0].Text)
	assert.Equal(t, msgTypeNotFound, f.action(t, ActionRenameType, "")[0].Text)
}

func TestTypeListsKeepInsertionOrder(t *testing.T) {
	f := newFixture(t)
	f.addType(t, "zeta")
	f.addType(t, "alpha")

	replies := f.action(t, ActionCreatePost, "")
	assert.Equal(t, []string{ActionPostFor + "|zeta", ActionPostFor + "|alpha"}, actions(replies[0]))
}

func TestUnknownInputs(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, msgUnrecognized, f.text(t, "hello?")[0].Text)
	assert.Equal(t, msgUnsupported, f.action(t, "explode", "")[0].Text)
	assert.Len(t, f.engine.Menu(context.Background(), user)[0].Keyboard, 6)
}

func TestEveryActionIsDispatched(t *testing.T) {
	for _, a := range Actions() {
		_, ok := dispatch[a]
		assert.True(t, ok, a)
	}
	assert.Len(t, dispatch, len(Actions()))
}

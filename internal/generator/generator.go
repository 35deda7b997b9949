// Package generator turns a persona, an example post and a topic into a new post.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/internal/store"
)

// ErrNoExamples is returned when the post type has nothing to imitate.
var ErrNoExamples = errors.New("post type has no examples")

// FailurePrefix starts the result text of a failed provider call.
const FailurePrefix = "An error occurred while generating the post: "

// Provider sends one system message and one user message and returns the reply text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Request describes one generation.
type Request struct {
	Profile  store.Profile
	Examples []string
	Topic    string
	// Language overrides Profile.Language when set.
	Language string
	// Exclude is the example index to avoid when at least two exist; -1 avoids nothing.
	Exclude int
	PostType string
}

// Result is the generated post and the index of the example it imitates.
type Result struct {
	Text   string
	Index  int
	Failed bool
}

// Generator picks an example and asks the provider for a post.
type Generator struct {
	provider Provider
	timeout  time.Duration
	intn     func(int) int
}

// Option customizes a Generator.
type Option func(*Generator)

// WithTimeout bounds each provider call; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithRand replaces the index source. intn(n) must return a value in [0, n).
func WithRand(intn func(int) int) Option {
	return func(g *Generator) { g.intn = intn }
}

// New builds a Generator over provider.
func New(provider Provider, opts ...Option) *Generator {
	g := &Generator{provider: provider, intn: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns ErrNoExamples for an empty list. Provider failures are
// reported through Result.Failed with a nil error.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	if len(req.Examples) == 0 {
		return Result{}, ErrNoExamples
	}

	idx := g.pick(len(req.Examples), req.Exclude)
	language := req.Language
	if language == "" {
		language = req.Profile.LanguageOrDefault()
	}

	ctx = logger.WithGenerationID(ctx, uuid.NewString())
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.provider.Complete(ctx, SystemMessage(req.Profile), BuildPrompt(req.Profile, req.Examples[idx], req.Topic, language))
	attrs := []slog.Attr{
		slog.String("provider", g.provider.Name()),
		slog.String("post_type", req.PostType),
		slog.Int("example_index", idx),
		slog.Int("examples", len(req.Examples)),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.Warn(ctx, "generator", "generate.failed", append(attrs, slog.String("err", err.Error()))...)
		return Result{Text: FailurePrefix + err.Error(), Index: idx, Failed: true}, nil
	}
	logger.Info(ctx, "generator", "generate", append(attrs, slog.Int("chars", len(text)))...)
	return Result{Text: strings.TrimSpace(text), Index: idx}, nil
}

// pick draws uniformly from [0, n), skipping exclude when n >= 2.
func (g *Generator) pick(n, exclude int) int {
	if n < 2 || exclude < 0 || exclude >= n {
		return g.intn(n)
	}
	i := g.intn(n - 1)
	if i >= exclude {
		i++
	}
	return i
}

// SystemMessage frames the provider as the persona.
func SystemMessage(p store.Profile) string {
	return fmt.Sprintf("Speak as %s.", p.Name)
}

// BuildPrompt renders the user message for one generation.
func BuildPrompt(p store.Profile, example, topic, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a Telegram post in %s using HTML for formatting "+
		"(for example <b>bold</b>, <i>italic</i>, <u>underline</u>, <s>strikethrough</s>, <code>code</code>, <pre>pre</pre>, <a href=\"...\">links</a>), "+
		"based on the following example.\n\n", language)
	b.WriteString("The post must NOT be an exact copy, but it must keep approximately the same number of words and the same style. ")
	b.WriteString("Use bold, italics, upper and lower case and spacing wherever the example does. ")
	b.WriteString("Do NOT use periods (.) or hashtags.\n\n")
	fmt.Fprintf(&b, "Example: %s\n\n", example)
	fmt.Fprintf(&b, "Topic: %s\n\n", topic)
	b.WriteString("Persona:\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Tag: %s\n", p.Tag)
	fmt.Fprintf(&b, "Personality: %s\n", p.Personality)
	fmt.Fprintf(&b, "Services: %s\n\n", strings.Join(p.Services, ", "))
	fmt.Fprintf(&b, "Write the post in %s.", language)
	return b.String()
}

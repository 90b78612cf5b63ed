package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SystemPrompt is the system instruction every ClassificationService must send.
const SystemPrompt = "You are a precise academic text classifier."

// NoneToken is what the model answers when no category fits.
const NoneToken = "none"

// DefaultErrorPause is the pause after a failed service call.
const DefaultErrorPause = time.Second

// ClassificationService sends a prompt to a text-classification model and
// returns its raw answer. Implementations use deterministic decoding and a
// short output cap since only a single category word is expected.
type ClassificationService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Notifier receives non-fatal classification failures.
type Notifier func(tag string, err error)

// Classifier resolves one tag for one abstract.
type Classifier struct {
	svc    ClassificationService
	pause  time.Duration
	notify Notifier
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithErrorPause overrides the pause inserted after a failed service call.
func WithErrorPause(d time.Duration) ClassifierOption {
	return func(c *Classifier) { c.pause = d }
}

// WithNotifier registers a callback for failed service calls.
func WithNotifier(n Notifier) ClassifierOption {
	return func(c *Classifier) { c.notify = n }
}

// NewClassifier creates a Classifier backed by svc.
func NewClassifier(svc ClassificationService, opts ...ClassifierOption) *Classifier {
	c := &Classifier{svc: svc, pause: DefaultErrorPause}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildPrompt renders the user prompt for one (tag, abstract) pair.
func BuildPrompt(objective string, spec TagSpec, abstract string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: Classify the following academic abstract into one of these categories for tag '%s'.\n", spec.tag)
	fmt.Fprintf(&b, "Context: The study objective is '%s'\n", objective)
	fmt.Fprintf(&b, "Tag definition: %s\n", spec.definition)
	fmt.Fprintf(&b, "Available categories: %s\n", strings.Join(spec.subtags, ", "))
	fmt.Fprintf(&b, "Abstract: %s\n\n", abstract)
	b.WriteString("Rules:\n")
	b.WriteString("1. Return ONLY the category name in lowercase\n")
	fmt.Fprintf(&b, "2. If no category fits, return '%s'\n", NoneToken)
	b.WriteString("3. Be precise and consistent\n")
	return b.String()
}

// Classify returns the subtag the service picked for abstract, or "" when the
// abstract is missing, nothing fits, or the answer is not an allowed value.
//
// A failed service call also resolves to "", after the configured pause; the
// returned error wraps ErrClassification so callers can report it. The value
// is always usable regardless of the error.
func (c *Classifier) Classify(ctx context.Context, objective string, spec TagSpec, abstract *string) (string, error) {
	if abstract == nil || *abstract == "" {
		return "", nil
	}

	answer, err := c.svc.Complete(ctx, BuildPrompt(objective, spec, *abstract))
	if err != nil {
		err = fmt.Errorf("%w for tag %q: %v", ErrClassification, spec.tag, err)
		if c.notify != nil {
			c.notify(spec.tag, err)
		}
		c.sleep(ctx)
		return "", err
	}

	value := strings.ToLower(strings.TrimSpace(answer))
	if spec.Allows(value) {
		return value, nil
	}
	if value != NoneToken {
		slog.Debug("Discarding answer outside the allowed categories.", "tag", spec.tag, "answer", value)
	}
	return "", nil
}

func (c *Classifier) sleep(ctx context.Context) {
	if c.pause <= 0 {
		return
	}
	t := time.NewTimer(c.pause)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

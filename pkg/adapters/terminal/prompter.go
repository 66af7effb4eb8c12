package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/adapter"
)

// Form is the part of an engine the prompter drives.
type Form interface {
	View() (any, bool)
	Settle(ctx context.Context) error
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(p *Prompter) {
		if driver != nil {
			p.driver = driver
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Prompter) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMaxAttempts bounds how often an invalid field is asked again. Zero
// means no limit.
func WithMaxAttempts(n int) Option {
	return func(p *Prompter) {
		if n >= 0 {
			p.maxAttempts = n
		}
	}
}

// Prompter fills a form by asking one question per visible leaf. Answers go
// through the leaf's own OnChange, so transforms, validation and commit
// happen in the engine exactly as for any other adapter.
type Prompter struct {
	driver      PromptDriver
	logger      *zap.Logger
	maxAttempts int
}

// NewPrompter builds a prompter. Without WithPromptDriver it prompts on the
// process terminal through survey.
func NewPrompter(opts ...Option) *Prompter {
	p := &Prompter{
		logger:      zap.NewNop(),
		maxAttempts: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.driver == nil {
		p.driver = NewSurveyDriver(nil)
	}
	return p
}

// Fill asks every question in tree order. The view is re-read after each
// answer, so groups revealed by an answer are asked too. Readonly and
// disabled leaves are reported, not asked.
func (p *Prompter) Fill(ctx context.Context, form Form) error {
	asked := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		view, ok := form.View()
		if !ok {
			return ErrNotReady
		}

		var next *Question
		for _, q := range Questions(view) {
			if !asked[q.Name] {
				next = &q
				break
			}
		}
		if next == nil {
			return form.Settle(ctx)
		}
		asked[next.Name] = true

		if err := p.ask(ctx, form, *next); err != nil {
			return err
		}
	}
}

// ask prompts for one field until the field accepts the answer.
func (p *Prompter) ask(ctx context.Context, form Form, q Question) error {
	log := p.logger.With(zap.String("field", q.Name))
	if q.Disabled || q.Loading {
		log.Debug("skipping field", zap.Bool("disabled", q.Disabled), zap.Bool("loading", q.Loading))
		return nil
	}

	q.OnFocus(nil)
	current, ok := p.lookup(form, q.Name)
	if !ok {
		return nil
	}
	if current.Readonly {
		current.OnBlur()
		return p.driver.Info(ctx, fmt.Sprintf("%s: %s (read-only)", current.Title(), display(current.Value)))
	}

	for attempt := 1; ; attempt++ {
		value, err := p.prompt(ctx, current)
		if err != nil {
			current.OnBlur()
			return err
		}
		current.OnChange(value, adapter.ChangeOptions{Immediate: true})
		if err := form.Settle(ctx); err != nil {
			return err
		}

		after, ok := p.lookup(form, q.Name)
		if !ok {
			return nil
		}
		if after.Invalid == "" {
			after.OnBlur()
			log.Debug("answer accepted", zap.Any("value", after.Value))
			return nil
		}
		log.Debug("answer rejected", zap.String("reason", after.Invalid), zap.Int("attempt", attempt))
		if err := p.driver.Info(ctx, fmt.Sprintf("%s: %s", after.Title(), after.Invalid)); err != nil {
			return err
		}
		if p.maxAttempts > 0 && attempt >= p.maxAttempts {
			after.OnBlur()
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, q.Name)
		}
		current = after
	}
}

func (p *Prompter) lookup(form Form, name string) (Question, bool) {
	view, ok := form.View()
	if !ok {
		return Question{}, false
	}
	for _, q := range Questions(view) {
		if q.Name == name {
			return q, true
		}
	}
	return Question{}, false
}

func (p *Prompter) prompt(ctx context.Context, q Question) (any, error) {
	help := q.Hints["description"]
	options := q.Options()

	switch {
	case q.Widget == WidgetToggle:
		current, _ := q.Value.(bool)
		return p.driver.Confirm(ctx, ConfirmConfig{Message: q.Title(), Default: current, Help: help})

	case q.Widget == WidgetMultiSelect && len(options) > 0:
		picked, err := p.driver.MultiSelect(ctx, SelectConfig{
			Message:  q.Title(),
			Options:  options,
			Defaults: indicesOf(options, stringList(q.Value)),
			Help:     help,
		})
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(options) {
				out = append(out, options[idx])
			}
		}
		return out, nil

	case q.Widget == WidgetSelect && len(options) > 0:
		idx, err := p.driver.Select(ctx, SelectConfig{
			Message:      q.Title(),
			Options:      options,
			DefaultIndex: indexOf(options, display(q.Value)),
			Help:         help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(options) {
			return nil, errors.New("terminal: selection out of range")
		}
		return options[idx], nil

	case q.Widget == WidgetNumber:
		raw, err := p.driver.Input(ctx, InputConfig{
			Message:   q.Title(),
			Default:   display(q.Value),
			Help:      help,
			Validator: validNumber,
		})
		if err != nil {
			return nil, err
		}
		return parseNumber(raw), nil

	case q.Hints["multiline"] == "true":
		return p.driver.TextArea(ctx, TextAreaConfig{Message: q.Title(), Default: display(q.Value), Help: help})

	case q.Hints["secret"] == "true":
		return p.driver.Password(ctx, InputConfig{Message: q.Title(), Help: help})

	default:
		return p.driver.Input(ctx, InputConfig{Message: q.Title(), Default: display(q.Value), Help: help})
	}
}

func validNumber(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return errors.New("enter a number")
	}
	return nil
}

// parseNumber returns nil for blank input so a required check can reject it.
func parseNumber(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}

func display(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, display(item))
		}
		return out
	}
	return nil
}

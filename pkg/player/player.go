// Package player walks a live form session in the terminal: it prompts for
// each question, feeds raw input into the tree, and drives repeats and the
// final submit through the session.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formplayer/pkg/answer"
	"github.com/goliatone/go-formplayer/pkg/entry"
	"github.com/goliatone/go-formplayer/pkg/form"
	"github.com/goliatone/go-formplayer/pkg/session"
)

const settleTimeout = 10 * time.Second

// Option configures a Player.
type Option func(*Player)

// WithPromptDriver overrides the survey-backed prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(p *Player) {
		if driver != nil {
			p.driver = driver
		}
	}
}

// WithOutput redirects status output away from stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Player) {
		if w != nil {
			p.out = w
		}
	}
}

// WithLogger replaces the default no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Player) {
		if log != nil {
			p.log = log
		}
	}
}

// WithDebounce sets the answer debounce window on the underlying session.
func WithDebounce(d time.Duration) Option {
	return func(p *Player) {
		p.debounce = d
	}
}

// Player owns one session and the terminal interaction for it.
type Player struct {
	driver   PromptDriver
	out      io.Writer
	log      *zap.Logger
	debounce time.Duration

	session *session.Session
	loadCh  chan *form.Form
	doneCh  chan *session.Response
	failCh  chan string
}

// New creates a player over the given transport.
func New(t session.Transport, options ...Option) *Player {
	p := &Player{
		driver:   newSurveyDriver(),
		out:      os.Stdout,
		log:      zap.NewNop(),
		debounce: form.DefaultDebounce,
		loadCh:   make(chan *form.Form, 1),
		doneCh:   make(chan *session.Response, 1),
		failCh:   make(chan string, 8),
	}
	for _, opt := range options {
		opt(p)
	}
	p.session = session.New(t,
		session.WithLogger(p.log),
		session.WithDebounce(p.debounce),
		session.OnLoad(func(f *form.Form) { p.loadCh <- f }),
		session.OnSubmit(func(resp *session.Response) { p.doneCh <- resp }),
		session.OnProgress(func(pr session.Progress) {
			fmt.Fprintf(p.out, "Processing %d of %d...\n", pr.Done, pr.Total)
		}),
		session.OnError(func(msg string) {
			fmt.Fprintf(p.out, "Error: %s\n", msg)
			select {
			case p.failCh <- msg:
			default:
			}
		}))
	return p
}

// Session exposes the underlying session.
func (p *Player) Session() *session.Session {
	return p.session
}

// Run opens the form, walks every question, and submits. It returns nil on a
// successful submit, ErrAborted if the user bailed out, or the first fatal
// session failure.
func (p *Player) Run(ctx context.Context, spec session.FormSpec) error {
	if !p.session.Load(ctx, spec) {
		return ErrLoadRejected
	}
	var f *form.Form
	select {
	case f = <-p.loadCh:
	case msg := <-p.failCh:
		return fmt.Errorf("player: %s", msg)
	case <-ctx.Done():
		return ctx.Err()
	}

	if title := f.Title.Get(); title != "" {
		fmt.Fprintf(p.out, "%s\n\n", title)
	}
	if err := p.walkNodes(ctx, f.Children.Get()); err != nil {
		return err
	}
	return p.submit(ctx, f)
}

func (p *Player) walkNodes(ctx context.Context, nodes []form.Node) error {
	for _, n := range nodes {
		var err error
		switch node := n.(type) {
		case *form.Question:
			err = p.askQuestion(ctx, node)
		case *form.Group:
			if caption := node.Caption.Get(); caption != "" {
				fmt.Fprintf(p.out, "-- %s --\n", caption)
			}
			err = p.walkNodes(ctx, node.Children.Get())
		case *form.Repeat:
			err = p.walkRepeat(ctx, node)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// walkRepeat visits existing instances, then offers to add more. Each added
// instance is a server round trip; only the newly appended instances are
// visited after it.
func (p *Player) walkRepeat(ctx context.Context, rep *form.Repeat) error {
	if err := p.walkNodes(ctx, rep.Children.Get()); err != nil {
		return err
	}
	for {
		msg := rep.AddCaption.Get()
		if msg == "" {
			msg = fmt.Sprintf("Add another %s?", rep.Caption.Get())
		}
		add, err := p.driver.Confirm(ctx, ConfirmConfig{Message: msg})
		if err != nil {
			return err
		}
		if !add {
			return nil
		}
		before := len(rep.Children.Get())
		if !p.session.NewRepeat(ctx, rep) {
			continue
		}
		if err := p.settle(ctx); err != nil {
			return err
		}
		kids := rep.Children.Get()
		if len(kids) <= before {
			return nil
		}
		if err := p.walkNodes(ctx, kids[before:]); err != nil {
			return err
		}
	}
}

func (p *Player) askQuestion(ctx context.Context, q *form.Question) error {
	if !q.Entry().Answerable() {
		return p.driver.Info(ctx, q.Caption.Get())
	}

	message := q.Caption.Get()
	if q.Required() {
		message += " *"
	}

	raw, err := p.promptRaw(ctx, q, message)
	if err != nil {
		return err
	}
	q.SetRaw(raw)
	if err := p.settle(ctx); err != nil {
		return err
	}
	if msg := q.ServerError.Get(); msg != "" {
		fmt.Fprintf(p.out, "Error: %s\n", msg)
	}
	return nil
}

func (p *Player) promptRaw(ctx context.Context, q *form.Question, message string) (entry.Raw, error) {
	choices := q.Choices.Get()
	switch q.Datatype() {
	case entry.DatatypeSelect:
		cfg := SelectConfig{Message: message, Options: choices, DefaultIndex: -1}
		if n, ok := q.Answer.Get().(int64); ok {
			cfg.DefaultIndex = int(n) - 1
		}
		idx, err := p.driver.Select(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return idx + 1, nil

	case entry.DatatypeMultiSelect:
		cfg := SelectConfig{Message: message, Options: choices}
		if ns, ok := q.Answer.Get().([]int); ok {
			for _, n := range ns {
				cfg.Defaults = append(cfg.Defaults, n-1)
			}
		}
		picked, err := p.driver.MultiSelect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		out := make([]int, 0, len(picked))
		for _, idx := range picked {
			out = append(out, idx+1)
		}
		return out, nil

	case entry.DatatypeGeo:
		s, err := p.driver.Input(ctx, InputConfig{
			Message: message,
			Help:    "latitude and longitude, separated by a space",
			Default: formatValue(q.Answer.Get()),
			Validator: func(s string) error {
				_, err := parseCoords(s)
				return err
			},
		})
		if err != nil {
			return nil, err
		}
		coords, err := parseCoords(s)
		if err != nil {
			return nil, err
		}
		return coords, nil

	default:
		return p.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   formatValue(q.Answer.Get()),
			Help:      helpFor(q.Datatype()),
			Validator: textValidator(q),
		})
	}
}

func (p *Player) submit(ctx context.Context, f *form.Form) error {
	if err := p.settle(ctx); err != nil {
		return err
	}
	ok, err := p.driver.Confirm(ctx, ConfirmConfig{Message: "Submit the form?", Default: true})
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	if !p.session.Submit(ctx) {
		return fmt.Errorf("player: submit refused")
	}
	select {
	case <-p.doneCh:
		fmt.Fprintln(p.out, "Form submitted.")
		return nil
	case msg := <-p.failCh:
		return fmt.Errorf("player: %s", msg)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle waits for in-flight answer traffic to drain so the next prompt sees
// a reconciled tree.
func (p *Player) settle(ctx context.Context) error {
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := p.session.Form()
		if f != nil && f.PendingCount() == 0 && p.session.Blocking() == session.BlockNone {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	p.log.Warn("session did not settle in time")
	return nil
}

func textValidator(q *form.Question) func(string) error {
	return func(s string) error {
		if q.Required() && strings.TrimSpace(s) == "" {
			return errors.New("An answer is required")
		}
		if msg := q.Entry().ErrorMessage(s, q.Choices.Get()); msg != "" {
			return errors.New(msg)
		}
		return nil
	}
}

func helpFor(dt entry.Datatype) string {
	switch dt {
	case entry.DatatypeDate:
		return "format: " + entry.DateLayout
	case entry.DatatypeTime:
		return "format: " + entry.TimeLayout
	case entry.DatatypeDateTime:
		return "format: " + entry.DateTimeLayout
	default:
		return ""
	}
}

func formatValue(v answer.Value) string {
	if answer.IsBlank(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []float64:
		parts := make([]string, 0, len(t))
		for _, f := range t {
			parts = append(parts, strconv.FormatFloat(f, 'f', -1, 64))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

func parseCoords(s string) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) != 2 {
		return nil, errors.New("Not a valid location")
	}
	out := make([]float64, 0, 2)
	for _, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.New("Not a valid location")
		}
		out = append(out, f)
	}
	return out, nil
}

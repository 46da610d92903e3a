// Package runtime drives an agent turn by turn, dispatching the tool calls
// it asks for until it reports completion.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Protocol-Lattice/docent/pkg/directive"
	"github.com/Protocol-Lattice/docent/pkg/logging"
	"github.com/Protocol-Lattice/docent/pkg/models"
)

var (
	// ErrTurnLimit is returned when the loop reaches its turn budget without
	// the model reporting completion.
	ErrTurnLimit = errors.New("turn limit reached")
	// ErrTransportExhausted is returned after too many consecutive failed
	// posts.
	ErrTransportExhausted = errors.New("too many consecutive transport failures")
)

// Poster is the part of *agent.Agent the loop needs.
type Poster interface {
	Post(ctx context.Context) (string, error)
	AddMessage(role, content string)
}

// Invoker is the part of *tools.ToolSet the loop needs.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// StopReason tells why Run returned.
type StopReason string

const (
	StopDone               StopReason = "done"
	StopTurnLimit          StopReason = "turn_limit"
	StopTransportExhausted StopReason = "transport_exhausted"
	StopCanceled           StopReason = "canceled"
)

// Result summarises a finished run.
type Result struct {
	Turns       int
	Invocations int
	Failures    int
	Reason      StopReason
}

// Option configures a Loop.
type Option func(*config)

type config struct {
	maxTurns       int
	maxFailures    int
	backoffInitial time.Duration
	backoffMax     time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
	observer       Observer
}

func defaultConfig() *config {
	return &config{
		maxTurns:       200,
		maxFailures:    5,
		backoffInitial: time.Second,
		backoffMax:     30 * time.Second,
		logger:         logging.Discard(),
	}
}

// WithMaxTurns caps how many posts a run makes. Zero removes the cap.
func WithMaxTurns(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxTurns = n
		}
	}
}

// WithMaxConsecutiveFailures sets how many failed posts in a row end the
// run. Zero retries forever.
func WithMaxConsecutiveFailures(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxFailures = n
		}
	}
}

// WithBackoff sets the delay after a failed post. It doubles with every
// consecutive failure up to maxDelay and resets after a success.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *config) {
		if initial < 0 {
			initial = 0
		}
		if maxDelay < initial {
			maxDelay = initial
		}
		c.backoffInitial = initial
		c.backoffMax = maxDelay
	}
}

// WithRateLimit paces posts to at most r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *config) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(r, burst)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver receives an Event for every step of the run.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observer = o }
}

// Loop alternates between the model and the tools.
type Loop struct {
	agent Poster
	tools Invoker
	cfg   *config
}

func New(agent Poster, tools Invoker, opts ...Option) *Loop {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return &Loop{agent: agent, tools: tools, cfg: cfg}
}

// Run drives the conversation until the model emits the completion marker,
// the turn budget runs out, posting keeps failing or ctx is done. Parse and
// tool errors never end the run; they are reported back to the model.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	var (
		res         Result
		consecutive int
		delay       = l.cfg.backoffInitial
		log         = l.cfg.logger
	)

	for {
		if err := ctx.Err(); err != nil {
			res.Reason = StopCanceled
			return res, err
		}
		if l.cfg.maxTurns > 0 && res.Turns >= l.cfg.maxTurns {
			res.Reason = StopTurnLimit
			return res, fmt.Errorf("%w after %d turns", ErrTurnLimit, res.Turns)
		}
		if l.cfg.limiter != nil {
			if err := l.cfg.limiter.Wait(ctx); err != nil {
				res.Reason = StopCanceled
				return res, err
			}
		}

		res.Turns++
		turn := res.Turns
		l.notify(Event{Kind: EventPosting, Turn: turn})

		text, err := l.agent.Post(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.Reason = StopCanceled
				return res, ctx.Err()
			}
			res.Failures++
			consecutive++
			log.Warn("post failed", "turn", turn, "consecutive", consecutive, "err", err)
			l.notify(Event{Kind: EventFailure, Turn: turn, Err: err})

			if l.cfg.maxFailures > 0 && consecutive >= l.cfg.maxFailures {
				res.Reason = StopTransportExhausted
				return res, fmt.Errorf("%w (%d in a row): %w", ErrTransportExhausted, consecutive, err)
			}
			if err := sleep(ctx, delay); err != nil {
				res.Reason = StopCanceled
				return res, err
			}
			delay = min(delay*2, l.cfg.backoffMax)
			continue
		}
		consecutive = 0
		delay = l.cfg.backoffInitial

		l.agent.AddMessage(models.RoleAssistant, text)
		l.notify(Event{Kind: EventResponse, Turn: turn, Text: text})

		kind, inv, perr := directive.Classify(text)
		log.Debug("turn classified", "turn", turn, "kind", kind.String())

		var feedback string
		switch kind {
		case directive.KindInvoke:
			res.Invocations++
			out, err := l.tools.Invoke(ctx, inv.Tool, inv.Arguments)
			if err != nil {
				log.Info("tool failed", "turn", turn, "tool", inv.Tool, "err", err)
				out = "Error: " + err.Error()
			}
			feedback = ToolOutput(out)
			l.notify(Event{Kind: EventToolOutput, Turn: turn, Tool: inv.Tool, Text: feedback, Err: err})
		case directive.KindDone:
			res.Reason = StopDone
			l.notify(Event{Kind: EventDone, Turn: turn})
			return res, nil
		case directive.KindDocument:
			feedback = ToolOutput(DocumentAcknowledgement)
			l.notify(Event{Kind: EventToolOutput, Turn: turn, Text: feedback})
		default:
			feedback = ToolOutput(Correction(perr))
			l.notify(Event{Kind: EventToolOutput, Turn: turn, Text: feedback, Err: perr})
		}
		l.agent.AddMessage(models.RoleUser, feedback)
	}
}

func (l *Loop) notify(ev Event) {
	if l.cfg.observer != nil {
		l.cfg.observer(ev)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"incidentdesk/internal/query"
)

// Submit refusals. Neither touches the transcript or the error slot.
var (
	ErrEmptyInput      = errors.New("empty question")
	ErrRequestInFlight = errors.New("a question is already in flight")
	ErrClosed          = errors.New("session closed")
)

const DefaultTimeFormat = "15:04:05"

// Ticket identifies one accepted submission.
type Ticket struct {
	Generation uint64
	Question   string
	ctx        context.Context
}

// Completion is the outcome of executing a Ticket.
type Completion struct {
	Generation uint64
	Response   *query.Response
	Err        error
}

// State is a point-in-time view of the controller for rendering.
type State struct {
	SessionID string
	Pending   bool
	Error     string
	HasError  bool
	Messages  int
}

// Controller runs the Idle -> Pending -> Idle cycle against a query.Client.
// Submit and Apply mutate session state; Execute only talks to the client
// and can run on any goroutine.
type Controller struct {
	client     query.Client
	now        func() time.Time
	timeFormat string
	logger     *slog.Logger

	mu             sync.Mutex
	store          *Store
	sessionID      string
	generation     uint64
	pending        bool
	closed         bool
	base           context.Context
	stop           context.CancelFunc
	cancelInflight context.CancelFunc
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithTimeFormat(layout string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(layout) != "" {
			c.timeFormat = layout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewController(client query.Client, opts ...Option) *Controller {
	base, stop := context.WithCancel(context.Background())
	c := &Controller{
		client:     client,
		now:        time.Now,
		timeFormat: DefaultTimeFormat,
		logger:     slog.Default(),
		store:      NewStore(),
		sessionID:  uuid.NewString(),
		base:       base,
		stop:       stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "session")
	return c
}

// Store returns the transcript of the current session. Reset replaces it.
func (c *Controller) Store() *Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Controller) State() State {
	c.mu.Lock()
	store, state := c.store, State{SessionID: c.sessionID, Pending: c.pending}
	c.mu.Unlock()
	state.Error, state.HasError = store.Error()
	state.Messages = store.Len()
	return state
}

// Submit accepts question when it is non-blank and nothing is pending. The
// trimmed question is appended as a user message and the error slot cleared.
func (c *Controller) Submit(question string) (Ticket, error) {
	trimmed := strings.TrimSpace(question)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return Ticket{}, ErrClosed
	case trimmed == "":
		return Ticket{}, ErrEmptyInput
	case c.pending:
		return Ticket{}, ErrRequestInFlight
	}

	c.generation++
	ctx, cancel := context.WithCancel(c.base)
	c.cancelInflight = cancel
	c.store.AppendUser(trimmed, c.stamp())
	c.pending = true
	c.store.ClearError()
	c.logger.Info("question submitted", "session_id", c.sessionID, "generation", c.generation)
	return Ticket{Generation: c.generation, Question: trimmed, ctx: ctx}, nil
}

// Execute calls the client exactly once for t. It is canceled when either
// ctx ends or the session is reset or closed.
func (c *Controller) Execute(ctx context.Context, t Ticket) Completion {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if t.ctx != nil {
		stop := context.AfterFunc(t.ctx, cancel)
		defer stop()
	}
	resp, err := c.client.Query(ctx, t.Question)
	return Completion{Generation: t.Generation, Response: resp, Err: err}
}

// Apply moves the controller back to Idle with the completion's outcome. It
// reports false, changing nothing, for completions that are late, duplicated
// or belong to a session that has since been reset.
func (c *Controller) Apply(comp Completion) bool {
	applied, _ := c.apply(comp)
	return applied
}

func (c *Controller) apply(comp Completion) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.pending || comp.Generation != c.generation {
		c.logger.Debug("discarding stale completion",
			"generation", comp.Generation,
			"current", c.generation,
			"pending", c.pending,
		)
		return false, nil
	}
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
	c.pending = false

	err := comp.Err
	if err == nil && (comp.Response == nil || comp.Response.FormattedResponse == "") {
		err = query.NewMalformed("response carried no formatted answer")
	}
	if err != nil {
		message := query.UserMessage(err)
		c.store.SetError(message)
		c.logger.Warn("question failed",
			"session_id", c.sessionID,
			"generation", comp.Generation,
			"kind", query.KindOf(err).String(),
			"error", err,
		)
		return true, err
	}
	c.store.AppendAssistant(comp.Response.FormattedResponse, c.stamp(), comp.Response.RawData)
	c.logger.Info("question answered",
		"session_id", c.sessionID,
		"generation", comp.Generation,
		"incidents", len(comp.Response.RawData.Incidents()),
	)
	return true, nil
}

// Ask runs Submit, Execute and Apply in sequence and returns the refusal or
// query error, if any.
func (c *Controller) Ask(ctx context.Context, question string) error {
	t, err := c.Submit(question)
	if err != nil {
		return err
	}
	_, err = c.apply(c.Execute(ctx, t))
	return err
}

// Reset starts a fresh session. The in-flight request, if any, is canceled
// and its completion will be ignored.
func (c *Controller) Reset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
	c.generation++
	c.pending = false
	c.store = NewStore()
	c.sessionID = uuid.NewString()
	c.logger.Info("session reset", "session_id", c.sessionID)
	return c.sessionID
}

// Close cancels any in-flight request; later completions are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.pending = false
	c.cancelInflight = nil
	c.stop()
}

func (c *Controller) stamp() string {
	return c.now().Format(c.timeFormat)
}

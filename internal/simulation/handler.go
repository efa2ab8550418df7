package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/host"
)

// State is the handler's position in the event loop.
type State int32

const (
	// AwaitingEvent is the idle state between events.
	AwaitingEvent State = iota
	// Handling is the state while one event is being processed.
	Handling
)

func (s State) String() string {
	switch s {
	case AwaitingEvent:
		return "awaiting_event"
	case Handling:
		return "handling"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handler dispatches host events to a Simulation, one at a time.
type Handler struct {
	state  atomic.Int32
	logger *slog.Logger
	events int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the handler logger. Default: slog.Default().
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a handler in the AwaitingEvent state.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// State returns the current state.
func (h *Handler) State() State {
	return State(h.state.Load())
}

// Events returns the number of events handled successfully.
func (h *Handler) Events() int64 { return h.events }

// Handle processes one event. Frames tick the simulation; failure events
// update the active failure set, and unknown failure codes are logged and
// dropped. Any other error is fatal and returned unchanged.
func (h *Handler) Handle(ctx context.Context, e host.Event, sim *Simulation) error {
	if !h.state.CompareAndSwap(int32(AwaitingEvent), int32(Handling)) {
		return &engine.RuntimeError{
			Code:    engine.ErrCodeReentrantEvent,
			Message: fmt.Sprintf("event %s received while handling another event", e),
			Stage:   engine.StageDispatch,
		}
	}
	defer h.state.Store(int32(AwaitingEvent))

	var err error
	switch e.Kind {
	case host.EventFrame:
		err = sim.Tick(ctx, e.Delta)
	case host.EventActivateFailure:
		err = h.handleFailure(ctx, sim, e.Code, true)
	case host.EventDeactivateFailure:
		err = h.handleFailure(ctx, sim, e.Code, false)
	default:
		h.logger.Warn("dropping unknown host event", "kind", e.Kind.String())
		return nil
	}
	if err != nil {
		h.logger.Error("event failed", "event", e.String(), "seq", sim.Seq(), "error", err)
		return err
	}
	h.events++
	return nil
}

func (h *Handler) handleFailure(ctx context.Context, sim *Simulation, code int, active bool) error {
	seq := sim.clock.Next()
	ft, changed, err := sim.setFailure(code, active)
	if err != nil {
		if !errors.Is(err, failures.ErrUnknownFailureCode) {
			return err
		}
		h.logger.Warn("ignoring unknown failure code", "code", code, "activate", active, "seq", seq)
	}
	return sim.recordFailure(ctx, seq, code, ft, active, changed)
}

// Run receives events from src and handles them until src is exhausted
// (nil), ctx is cancelled (ctx.Err()) or an event fails (that error).
func (h *Handler) Run(ctx context.Context, src host.Source, sim *Simulation) error {
	h.logger.Info("simulation loop starting", "prefix", sim.Prefix())
	for {
		e, ok := src.Next(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				h.logger.Info("simulation loop stopping: context cancelled", "events", h.events)
				return err
			}
			h.logger.Info("simulation loop stopping: source exhausted", "events", h.events)
			return nil
		}
		if err := h.Handle(ctx, e, sim); err != nil {
			return err
		}
	}
}

// Run drives sim with a new Handler until src is exhausted.
func Run(ctx context.Context, src host.Source, sim *Simulation) error {
	return NewHandler().Run(ctx, src, sim)
}

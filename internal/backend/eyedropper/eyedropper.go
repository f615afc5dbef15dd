package eyedropper

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/jo-hoe/gopicker/internal/picker"
)

var ErrNoPendingPick = errors.New("no pending color pick")

// ImageSource resolves the image currently shown in a session
type ImageSource interface {
	SessionImage(ctx context.Context, sessionID string) (image.Image, error)
}

// EyeDropper samples the pixel the user clicks on the displayed image. Open
// parks the caller until Deliver or Abort is called for the same session.
type EyeDropper struct {
	source ImageSource

	mu      sync.Mutex
	pending map[string]*waiter
	closed  bool
}

type waiter struct {
	points chan image.Point
	abort  chan struct{}
}

func New(source ImageSource) *EyeDropper {
	return &EyeDropper{
		source:  source,
		pending: make(map[string]*waiter),
	}
}

// Open implements picker.Sampler
func (e *EyeDropper) Open(ctx context.Context, sessionID string) picker.Outcome {
	w := &waiter{
		points: make(chan image.Point, 1),
		abort:  make(chan struct{}, 1),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return picker.Cancelled()
	}
	if _, busy := e.pending[sessionID]; busy {
		e.mu.Unlock()
		return picker.Failed(picker.ErrSampleInProgress.Error())
	}
	e.pending[sessionID] = w
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.pending, sessionID)
		e.mu.Unlock()
	}()

	slog.Debug("EyeDropper: waiting for pick", "session_id", sessionID)

	select {
	case p := <-w.points:
		return e.sample(ctx, sessionID, p)
	case <-w.abort:
		slog.Debug("EyeDropper: pick aborted", "session_id", sessionID)
		return picker.Cancelled()
	case <-ctx.Done():
		slog.Debug("EyeDropper: pick abandoned", "session_id", sessionID, "error", ctx.Err())
		return picker.Cancelled()
	}
}

// Deliver hands a clicked pixel to the pending pick of a session
func (e *EyeDropper) Deliver(sessionID string, x, y int) error {
	w, err := e.waiter(sessionID)
	if err != nil {
		return err
	}
	select {
	case w.points <- image.Pt(x, y):
	default:
		// a point is already queued; the first click wins
	}
	return nil
}

// Abort cancels the pending pick of a session
func (e *EyeDropper) Abort(sessionID string) error {
	w, err := e.waiter(sessionID)
	if err != nil {
		return err
	}
	select {
	case w.abort <- struct{}{}:
	default:
	}
	return nil
}

// Shutdown cancels every pending pick and makes later Opens return
// Cancelled right away. It returns the number of aborted picks.
func (e *EyeDropper) Shutdown() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for _, w := range e.pending {
		select {
		case w.abort <- struct{}{}:
		default:
		}
	}
	return len(e.pending)
}

// Pending reports whether a pick is waiting for the session
func (e *EyeDropper) Pending(sessionID string) bool {
	_, err := e.waiter(sessionID)
	return err == nil
}

func (e *EyeDropper) waiter(sessionID string) (*waiter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.pending[sessionID]
	if !ok {
		return nil, ErrNoPendingPick
	}
	return w, nil
}

func (e *EyeDropper) sample(ctx context.Context, sessionID string, p image.Point) picker.Outcome {
	img, err := e.source.SessionImage(ctx, sessionID)
	if err != nil {
		slog.Warn("EyeDropper: no image to sample", "session_id", sessionID, "error", err)
		return picker.Failed(fmt.Sprintf("failed to read image: %v", err))
	}
	c, err := SampleColor(img, p.X, p.Y)
	if err != nil {
		return picker.Failed(err.Error())
	}
	slog.Debug("EyeDropper: sampled", "session_id", sessionID, "x", p.X, "y", p.Y, "hex", c.Hex())
	return picker.Resolved(c.Hex())
}

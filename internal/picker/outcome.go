package picker

import (
	"context"
	"fmt"
)

type OutcomeKind int

const (
	OutcomeResolved OutcomeKind = iota
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResolved:
		return "resolved"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of one Sampler.Open call. Cancellation is a value,
// not an error to be matched.
type Outcome struct {
	Kind   OutcomeKind
	Hex    string // set for OutcomeResolved
	Reason string // set for OutcomeFailed
}

func Resolved(hex string) Outcome {
	return Outcome{Kind: OutcomeResolved, Hex: hex}
}

func Cancelled() Outcome {
	return Outcome{Kind: OutcomeCancelled}
}

func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// Err maps the outcome onto the sentinel errors, nil for a resolved sample.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeResolved:
		return nil
	case OutcomeCancelled:
		return ErrSampleCancelled
	default:
		return fmt.Errorf("%w: %s", ErrSampleFailed, o.Reason)
	}
}

// Sampler is the point-and-click color sampling capability. Open blocks until
// the user picks a pixel or cancels; ctx cancellation counts as a cancel.
type Sampler interface {
	Open(ctx context.Context, sessionID string) Outcome
}

// Clipboard accepts text for the system clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Capability is resolved once at startup and carried for the process lifetime.
type Capability struct {
	sampler Sampler
}

func Supported(sampler Sampler) Capability {
	return Capability{sampler: sampler}
}

func Unsupported() Capability {
	return Capability{}
}

func (c Capability) Supported() bool {
	return c.sampler != nil
}

// Sampler returns nil when the capability is unsupported
func (c Capability) Sampler() Sampler {
	return c.sampler
}

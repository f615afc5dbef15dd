package picker

import (
	"fmt"
	"time"

	"github.com/jo-hoe/gopicker/internal/hexcolor"
)

// Status is the sampler state of a session
type Status string

const (
	StatusUnavailable Status = "unavailable"
	StatusIdle        Status = "idle"
	StatusSampling    Status = "sampling"
	StatusResolved    Status = "resolved"
	StatusFailed      Status = "failed"
)

// Field names a copyable value of the result panel
type Field string

const (
	FieldHex Field = "hex"
	FieldRGB Field = "rgb"
)

// Session is the whole state of one page session. Image display and sampled
// color are independent slices: loading an image keeps the color, only
// ClearImage resets both.
type Session struct {
	ID        string          `json:"id"`
	Status    Status          `json:"status"`
	Image     *ImageResource  `json:"image,omitempty"`
	Color     *hexcolor.Color `json:"color,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewSession starts a session. Without a supported capability the session
// is Unavailable for good and carries the advisory message.
func NewSession(id string, capability Capability) *Session {
	s := &Session{ID: id, Status: StatusIdle}
	if !capability.Supported() {
		s.Status = StatusUnavailable
		s.Error = AdvisoryUnavailable
	}
	return s
}

// LoadImage replaces the displayed image
func (s *Session) LoadImage(res ImageResource) {
	s.Image = &res
}

// ClearImage removes the image and the sampled color. The error slot and a
// pending pick are left alone.
func (s *Session) ClearImage() {
	s.Image = nil
	s.Color = nil
	if s.Status == StatusResolved {
		s.Status = StatusIdle
	}
}

// BeginSample moves the session into Sampling. From Unavailable this is a
// no-op reported as ErrCapabilityUnavailable.
func (s *Session) BeginSample() error {
	switch s.Status {
	case StatusUnavailable:
		return ErrCapabilityUnavailable
	case StatusSampling:
		return ErrSampleInProgress
	}
	s.Status = StatusSampling
	return nil
}

// Apply records the outcome of a pick. A failed pick keeps the previous color
// on display; a resolved hex that does not decode counts as a failure.
func (s *Session) Apply(o Outcome) error {
	if s.Status != StatusSampling {
		return ErrNotSampling
	}

	switch o.Kind {
	case OutcomeResolved:
		c, err := hexcolor.Parse(o.Hex)
		if err != nil {
			s.Status = StatusFailed
			s.Error = err.Error()
			return fmt.Errorf("%w: %w", ErrSampleFailed, err)
		}
		s.Status = StatusResolved
		s.Error = ""
		s.Color = &c
	case OutcomeCancelled:
		s.Status = StatusIdle
	default:
		s.Status = StatusFailed
		s.Error = o.Reason
	}
	return o.Err()
}

// ResetStaleSample drops a Sampling status that no pick is waiting for any
// more, e.g. one persisted before a restart. It reports whether it did.
func (s *Session) ResetStaleSample() bool {
	if s.Status != StatusSampling {
		return false
	}
	s.Status = StatusIdle
	return true
}

// FailClipboard puts a clipboard error into the error slot
func (s *Session) FailClipboard(err error) {
	s.Error = fmt.Sprintf("%s: %v", ErrClipboardWriteFailed, err)
}

// HexText is the displayed hex value, empty without a sampled color
func (s *Session) HexText() string {
	if s.Color == nil {
		return ""
	}
	return s.Color.Hex()
}

// RGBText is the displayed rgb() value, empty without a sampled color
func (s *Session) RGBText() string {
	if s.Color == nil {
		return ""
	}
	return s.Color.RGBString()
}

// CanSample reports whether the pick trigger should be active
func (s *Session) CanSample() bool {
	return s.Status != StatusUnavailable && s.Status != StatusSampling
}

// Value returns the text of a copyable field
func (s *Session) Value(field Field) (string, error) {
	var v string
	switch field {
	case FieldHex:
		v = s.HexText()
	case FieldRGB:
		v = s.RGBText()
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if v == "" {
		return "", ErrNothingToCopy
	}
	return v, nil
}

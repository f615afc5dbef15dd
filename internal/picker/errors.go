package picker

import "errors"

var (
	// ErrCapabilityUnavailable means no sampler exists for this session. Permanent.
	ErrCapabilityUnavailable = errors.New("color sampling capability unavailable")
	// ErrSampleCancelled is the user aborting the picker. It never reaches the error slot.
	ErrSampleCancelled = errors.New("color sample cancelled")
	// ErrSampleFailed wraps any other sampler rejection; its text goes to the error slot.
	ErrSampleFailed = errors.New("color sample failed")
	// ErrSampleInProgress rejects a second pick while one is still waiting
	ErrSampleInProgress = errors.New("color sample already in progress")
	// ErrNotSampling is an outcome arriving for a session that is not sampling.
	ErrNotSampling = errors.New("no color sample in progress")
	// ErrClipboardWriteFailed prefixes clipboard errors in the error slot.
	ErrClipboardWriteFailed = errors.New("clipboard write failed")
	// ErrNothingToCopy is a copy request before any color was sampled.
	ErrNothingToCopy = errors.New("nothing to copy")
	// ErrUnknownField is a copy request for something other than hex or rgb.
	ErrUnknownField = errors.New("unknown field")
)

// AdvisoryUnavailable is shown in the error slot when sampling is not supported.
const AdvisoryUnavailable = "Color sampling is not supported in this environment"

// MessageCopied acknowledges a successful clipboard write.
const MessageCopied = "Color Code Copied!"

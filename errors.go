package shogicam

import "errors"

var (
	// ErrNoBoard is returned when no plausible board outline exists in a photograph.
	// It is distinct from a successful detection with a low score.
	ErrNoBoard = errors.New("no board found")

	// ErrDegenerateGeometry means the corners cannot define a perspective transform.
	ErrDegenerateGeometry = errors.New("degenerate board geometry")

	// ErrModelInvocation wraps failures and malformed output of the classification model.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrVocabularyMismatch means the model's output width differs from the label vocabulary.
	ErrVocabularyMismatch = errors.New("model classes do not match label vocabulary")
)

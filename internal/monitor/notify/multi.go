package notify

import (
	"context"
	"errors"
)

// Target is any notification destination.
type Target interface {
	Notify(ctx context.Context, entity, message string) error
}

// MultiNotifier dispatches a message to multiple targets. All targets are
// attempted; the first failure is returned.
type MultiNotifier struct {
	targets []Target
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(targets ...Target) *MultiNotifier {
	return &MultiNotifier{targets: targets}
}

// Notify forwards the message to all targets.
func (m *MultiNotifier) Notify(ctx context.Context, entity, message string) error {
	if m == nil {
		return errors.New("multi notifier: nil")
	}
	var firstErr error
	for _, target := range m.targets {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, entity, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

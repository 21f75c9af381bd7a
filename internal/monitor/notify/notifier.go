package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"cyclewatch/internal/observability/metrics"
)

// Clock provides time for message rendering.
type Clock interface {
	Now() time.Time
}

// Notifier renders alert messages and delivers them through a channel.
// Delivery is best-effort: a failed send is reported to the caller and
// counted, never retried.
type Notifier struct {
	channel  Channel
	template *Template
	clock    Clock
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNotifier constructs a webhook-backed notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:  channel,
		template: template,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements the engine's Notifier contract.
func (n *Notifier) Notify(ctx context.Context, entity, message string) error {
	if n == nil || n.channel == nil {
		return errors.New("notifier: nil channel")
	}
	content, err := n.template.Render(TemplateData{
		Entity:  entity,
		Message: message,
		Time:    n.clock.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		metrics.IncNotification(metrics.ResultError)
		return err
	}
	if err := n.channel.Send(ctx, content); err != nil {
		metrics.IncNotification(metrics.ResultError)
		return err
	}
	metrics.IncNotification(metrics.ResultSuccess)
	return nil
}

// LogNotifier writes notifications to the log only. It stands in when no
// webhook target is configured.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier constructs a log-only notifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the message.
func (l *LogNotifier) Notify(_ context.Context, entity, message string) error {
	if l == nil || l.logger == nil {
		return nil
	}
	l.logger.Printf("notify %s: %s", entity, message)
	return nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Package notify delivers committed routing events to the outside world:
// an HTTP webhook, a Markdown daily log, a Redis channel and the live feed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/YusovID/onetalk-router/internal/domain"
)

// Sink receives routing events. The dispatcher only logs Sink errors.
type Sink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Multi fans an event out to every sink. A failing sink does not stop the
// others; their errors are joined.
type Multi struct {
	log   *slog.Logger
	sinks []namedSink
}

type namedSink struct {
	name string
	sink Sink
}

func NewMulti(log *slog.Logger) *Multi {
	return &Multi{log: log}
}

// Add registers a sink under name.
func (m *Multi) Add(name string, sink Sink) *Multi {
	m.sinks = append(m.sinks, namedSink{name: name, sink: sink})
	m.log.Info("notification sink enabled", slog.String("sink", name))

	return m
}

func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Publish(ctx context.Context, event domain.Event) error {
	var errs []error

	for _, s := range m.sinks {
		if err := s.sink.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	return errors.Join(errs...)
}

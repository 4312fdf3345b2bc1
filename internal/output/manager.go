package output

import (
	"errors"
	"fmt"
)

// Sink is a destination for audit findings and lifecycle events.
// Write receives either a ruleeval.Finding or an Event; sinks ignore
// value kinds they do not render.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans findings out to every configured sink. A failing sink
// never blocks the others; errors are collected and reported together.
type Manager struct {
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Write(v any) error {
	if errs := m.each(func(s Sink) error { return s.Write(v) }); errs != nil {
		return fmt.Errorf("errors writing to sinks: %w", errs)
	}
	return nil
}

func (m *Manager) Close() error {
	if errs := m.each(func(s Sink) error { return s.Close() }); errs != nil {
		return fmt.Errorf("errors closing sinks: %w", errs)
	}
	return nil
}

func (m *Manager) each(op func(Sink) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := op(s); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

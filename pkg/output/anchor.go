// Package output implements the sinks that receive a run's rows.
package output

import (
	"errors"

	"github.com/sdelicata/dropbox-runner/pkg/schema"
)

var (
	// ErrNotOpen is returned by Write before Open.
	ErrNotOpen = errors.New("output anchor is not open")
	// ErrAlreadyWritten is returned by a second Write; rows are emitted once per run.
	ErrAlreadyWritten = errors.New("output anchor already written")
)

// Anchor receives the schema once and then a single batch of rows.
type Anchor interface {
	Open(s schema.Schema) error
	Write(rows []schema.Row) error
	Close() error
}

// state tracks the open/written lifecycle shared by every anchor.
type state struct {
	schema  schema.Schema
	open    bool
	written bool
}

func (s *state) openWith(sc schema.Schema) {
	s.schema = sc
	s.open = true
}

// begin checks that a write is allowed and validates every row against the schema.
func (s *state) begin(rows []schema.Row) error {
	if !s.open {
		return ErrNotOpen
	}
	if s.written {
		return ErrAlreadyWritten
	}
	for _, r := range rows {
		if err := s.schema.Validate(r); err != nil {
			return err
		}
	}
	s.written = true
	return nil
}

// Memory keeps the schema and rows in memory.
type Memory struct {
	state
	rows []schema.Row
}

// NewMemory returns an empty in-memory anchor.
func NewMemory() *Memory { return &Memory{} }

// Open records the schema.
func (m *Memory) Open(s schema.Schema) error {
	m.openWith(s)
	return nil
}

// Write keeps rows after validating them. It fails with ErrNotOpen before
// Open and ErrAlreadyWritten on a second call.
func (m *Memory) Write(rows []schema.Row) error {
	if err := m.begin(rows); err != nil {
		return err
	}
	m.rows = rows
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Schema returns the schema the anchor was opened with.
func (m *Memory) Schema() schema.Schema { return m.schema }

// Rows returns the written rows.
func (m *Memory) Rows() []schema.Row { return m.rows }

// Written reports whether Write has succeeded.
func (m *Memory) Written() bool { return m.written }

// IsOpen reports whether Open has been called.
func (m *Memory) IsOpen() bool { return m.open }

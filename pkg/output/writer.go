package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sdelicata/dropbox-runner/pkg/schema"
)

// Format selects how a Stream anchor serializes rows.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case JSON, CSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want json or csv)", s)
	}
}

// document is the JSON shape of a written batch.
type document struct {
	Schema []schema.Field   `json:"schema"`
	Rows   []map[string]any `json:"rows"`
}

// Stream serializes the batch to an io.Writer when Write is called.
// A Stream built by NewFile writes to a path instead and leaves it
// untouched unless Write succeeds.
type Stream struct {
	state
	w      io.Writer
	path   string
	format Format
}

// NewStream returns an anchor writing to w in the given format.
func NewStream(w io.Writer, format Format) *Stream {
	return &Stream{w: w, format: format}
}

// NewFile returns an anchor that replaces path with the batch on Write.
// Nothing is created before then, so a failed run keeps any previous file.
func NewFile(path string, format Format) *Stream {
	return &Stream{path: path, format: format}
}

// Open records the schema. It never touches the destination.
func (s *Stream) Open(sc schema.Schema) error {
	s.openWith(sc)
	return nil
}

// Write serializes rows in the configured format and emits them in one piece.
// It fails with ErrNotOpen before Open and ErrAlreadyWritten on a second call.
func (s *Stream) Write(rows []schema.Row) error {
	if err := s.begin(rows); err != nil {
		return err
	}

	var buf bytes.Buffer
	var err error
	switch s.format {
	case CSV:
		err = s.writeCSV(&buf, rows)
	default:
		err = s.writeJSON(&buf, rows)
	}
	if err != nil {
		return err
	}

	if s.path != "" {
		return replaceFile(s.path, buf.Bytes())
	}
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// Close is a no-op; Write leaves nothing open.
func (s *Stream) Close() error { return nil }

// replaceFile writes data to a temporary file next to path and renames it over path.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing output file: %w", err)
	}
	return nil
}

func (s *Stream) writeJSON(w io.Writer, rows []schema.Row) error {
	doc := document{
		Schema: s.schema.Fields,
		Rows:   make([]map[string]any, len(rows)),
	}
	for i, r := range rows {
		obj := make(map[string]any, len(r))
		for j, f := range s.schema.Fields {
			obj[f.Name] = r[j].Interface()
		}
		doc.Rows[i] = obj
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling rows: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (s *Stream) writeCSV(w io.Writer, rows []schema.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.schema.Names()); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// Package checkpoint implements the append-only CSV ledger that doubles as
// the pipeline's resumability state. The set of keys in the file is the
// complete set of processed work units; nothing else is trusted.
package checkpoint

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/ppiankov/qaverify/internal/model"
)

// ErrLocked is returned by Lock when another process holds the output
var ErrLocked = errors.New("output is locked by another run")

const utf8BOM = "\ufeff"

// Store is the output ledger at a single path.
// It is owned by one driver loop and is not safe for concurrent use.
type Store struct {
	path            string
	withJudgeOutput bool
	columns         []string
	lock            *flock.Flock
}

// NewStore creates a store for path. withJudgeOutput selects the header for a
// fresh file; an existing file's header always wins.
func NewStore(path string, withJudgeOutput bool) *Store {
	return &Store{
		path:            path,
		withJudgeOutput: withJudgeOutput,
		columns:         model.Columns(withJudgeOutput),
		lock:            flock.New(path + ".lock"),
	}
}

// Path returns the output file path
func (s *Store) Path() string {
	return s.path
}

// HasColumn reports whether the layout includes col
func (s *Store) HasColumn(col string) bool {
	return contains(s.columns, col)
}

// Lock takes an exclusive advisory lock on <path>.lock without blocking.
// It returns ErrLocked when another process holds it.
func (s *Store) Lock() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.lock.Path())
	}
	return nil
}

// Unlock releases the lock taken by Lock
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// EnsureInitialized writes the header when the file is missing or empty.
// Existing content is never truncated: its header is adopted, and a torn
// final row left by an interrupted append is closed so the next record
// starts on its own row.
func (s *Store) EnsureInitialized() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s.writeHeader()
	case err != nil:
		return fmt.Errorf("stat output: %w", err)
	case info.IsDir():
		return fmt.Errorf("output %s is a directory", s.path)
	case info.Size() == 0:
		return s.writeHeader()
	}

	end, openQuote, err := s.scanRecords()
	if err != nil {
		return err
	}
	if end == 0 {
		return fmt.Errorf("output %s has no complete header line", s.path)
	}

	header, err := s.readHeader()
	if err != nil {
		return err
	}
	if !contains(header, model.ColumnKey) {
		return fmt.Errorf("output %s has no %q column", s.path, model.ColumnKey)
	}
	s.columns = header

	if end < info.Size() {
		return s.closeTornRow(openQuote)
	}
	return nil
}

// LoadDoneKeys returns every key already present in the output. A missing
// or empty file yields an empty set.
func (s *Store) LoadDoneKeys() (map[model.UnitKey]struct{}, error) {
	done := make(map[model.UnitKey]struct{})

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return done, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := newReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return done, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read output header: %w", err)
	}
	header = cleanHeader(header)

	keyIdx := indexOf(header, model.ColumnKey)
	if keyIdx < 0 {
		return nil, fmt.Errorf("output %s has no %q column", s.path, model.ColumnKey)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read output: %w", err)
		}
		// a torn row closed by EnsureInitialized is short
		if len(rec) < len(header) {
			continue
		}
		if k := strings.TrimSpace(rec[keyIdx]); k != "" {
			done[model.UnitKey(k)] = struct{}{}
		}
	}

	return done, nil
}

// Append writes one record with a single write on a file opened for append,
// then syncs and closes it. Nothing is buffered across calls.
func (s *Store) Append(rec model.ResultRecord) error {
	data, err := encodeRow(rec.Row(s.columns))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.appendBytes(data)
}

func (s *Store) writeHeader() error {
	data, err := encodeRow(s.columns)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	return s.appendBytes(data)
}

func encodeRow(row []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) appendBytes(data []byte) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func (s *Store) readHeader() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	header, err := newReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("read output header: %w", err)
	}
	return cleanHeader(header), nil
}

// scanRecords returns the length of the prefix that ends with the last
// record terminator outside a quoted field, and whether the bytes after it
// end inside an open quoted field. A quote only opens a field when it is the
// field's first byte, as encoding/csv writes it.
func (s *Store) scanRecords() (int64, bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, false, fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	var n, end int64
	inQuotes, fieldStart := false, true
	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return end, inQuotes, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("read output: %w", err)
		}
		n++

		if inQuotes {
			if b == '"' {
				if next, err := br.Peek(1); err == nil && next[0] == '"' {
					_, _ = br.ReadByte()
					n++
					continue
				}
				inQuotes = false
			}
			continue
		}

		switch b {
		case '"':
			inQuotes = fieldStart
			fieldStart = false
		case ',':
			fieldStart = true
		case '\n':
			end = n
			fieldStart = true
		default:
			fieldStart = false
		}
	}
}

// closeTornRow terminates a partial final row, closing its quoted field
// first when the tear fell inside one
func (s *Store) closeTornRow(openQuote bool) error {
	if openQuote {
		return s.appendBytes([]byte("\"\n"))
	}
	return s.appendBytes([]byte("\n"))
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

func contains(cols []string, name string) bool {
	return indexOf(cols, name) >= 0
}

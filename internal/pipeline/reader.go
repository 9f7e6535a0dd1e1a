package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/qaverify/internal/model"
)

// Input column names
const (
	InputColumnID       = "id"
	InputColumnQuestion = "question"
	InputColumnAnswers  = "Answers"
)

// Row is one input record
type Row struct {
	Line     int // 1-based line of the record start, for diagnostics
	ID       string
	Question string
	Answers  string // ';'-separated candidate answers
}

// Units expands the row into its work units
func (r Row) Units() []model.WorkUnit {
	return model.ExpandRow(r.ID, r.Question, r.Answers)
}

// RowSource yields input rows until io.EOF
type RowSource interface {
	Next() (Row, error)
}

// InputReader streams rows from a CSV file with id, question and Answers
// columns. Other columns are ignored.
type InputReader struct {
	r      *csv.Reader
	closer io.Closer
	idIdx  int
	qIdx   int
	ansIdx int
}

// OpenInput opens path and validates its header
func OpenInput(path string) (*InputReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	ir, err := NewInputReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	ir.closer = f
	return ir, nil
}

// NewInputReader reads the header from r. A missing required column is an error.
func NewInputReader(r io.Reader) (*InputReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("input has no header")
	}
	if err != nil {
		return nil, fmt.Errorf("read input header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	ir := &InputReader{r: cr}
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{InputColumnID, &ir.idIdx},
		{InputColumnQuestion, &ir.qIdx},
		{InputColumnAnswers, &ir.ansIdx},
	} {
		i, ok := idx[c.name]
		if !ok {
			return nil, fmt.Errorf("input is missing required column %q (have %s)", c.name, strings.Join(header, ", "))
		}
		*c.dst = i
	}

	return ir, nil
}

// Next returns the next row, or io.EOF when the input is exhausted
func (ir *InputReader) Next() (Row, error) {
	rec, err := ir.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("read input: %w", err)
	}

	line, _ := ir.r.FieldPos(0)
	return Row{
		Line:     line,
		ID:       field(rec, ir.idIdx),
		Question: field(rec, ir.qIdx),
		Answers:  field(rec, ir.ansIdx),
	}, nil
}

// Close closes the underlying file, if any
func (ir *InputReader) Close() error {
	if ir.closer == nil {
		return nil
	}
	return ir.closer.Close()
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

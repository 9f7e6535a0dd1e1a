// Package pipeline drives the verification run: it streams input rows,
// expands them into work units, skips units already in the ledger, and
// retrieves, judges and records the rest one at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/evidence"
	"github.com/ppiankov/qaverify/internal/judge"
	"github.com/ppiankov/qaverify/internal/model"
	"github.com/ppiankov/qaverify/internal/throttle"
)

// Ledger is the durable record of processed units
type Ledger interface {
	LoadDoneKeys() (map[model.UnitKey]struct{}, error)
	Append(rec model.ResultRecord) error
}

// Options tunes a Driver
type Options struct {
	Delay         time.Duration // Fixed pause after each evidence call
	MaxChars      int           // Evidence text truncation limit
	ProgressEvery int           // Log progress every N rows; 0 disables
	Output        string        // Output path, for log lines only
}

// Stats are the running totals of one run
type Stats struct {
	Rows     int // Input rows read
	Answers  int // Non-empty candidate answers seen
	Units    int // Work units seen, including skipped
	Skipped  int // Units already in the ledger
	Judged   int // Units handed to the judge
	Recorded int // Records appended
	Errors   int // Units recorded as unknown after a failure
	Verdicts map[model.Verdict]int
	Elapsed  time.Duration
}

func newStats() Stats {
	return Stats{Verdicts: make(map[model.Verdict]int, 3)}
}

// Outcome is the successful result of one verification attempt
type Outcome struct {
	Judgment model.Judgment
	Evidence *model.Evidence // nil when nothing was found
	Judged   bool            // the judge was consulted
}

// Driver runs work units strictly one after another. The done set is loaded
// once per Run and owned by it.
type Driver struct {
	retriever evidence.Retriever
	judge     judge.Judge
	ledger    Ledger
	opts      Options
	logger    *slog.Logger
}

// NewDriver creates a driver. A nil logger discards log output.
func NewDriver(retriever evidence.Retriever, j judge.Judge, ledger Ledger, opts Options, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{
		retriever: retriever,
		judge:     j,
		ledger:    ledger,
		opts:      opts,
		logger:    logger,
	}
}

// Run processes every row from src. Per-unit failures are recorded as
// unknown and never stop the run. Reading input, loading the ledger,
// appending and context cancellation do; a unit interrupted by cancellation
// is left unrecorded so the next run picks it up.
func (d *Driver) Run(ctx context.Context, src RowSource) (Stats, error) {
	start := time.Now()
	stats := newStats()

	done, err := d.ledger.LoadDoneKeys()
	if err != nil {
		return stats, fmt.Errorf("load done keys: %w", err)
	}
	d.logger.Info("resuming from ledger",
		slog.Int("done_keys", len(done)),
		slog.String("judge", d.judge.Name()),
		slog.String("output", d.opts.Output))

	lastLine := 0
	for {
		if err := ctx.Err(); err != nil {
			return d.finish(stats, start), err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return d.finish(stats, start), fmt.Errorf("input after line %d: %w", lastLine, err)
		}
		stats.Rows++
		lastLine = row.Line

		for _, unit := range row.Units() {
			if err := d.process(ctx, row.Line, unit, done, &stats); err != nil {
				return d.finish(stats, start), err
			}
		}

		if d.opts.ProgressEvery > 0 && stats.Rows%d.opts.ProgressEvery == 0 {
			d.logger.Info("progress",
				slog.Int("rows", stats.Rows),
				slog.Int("answers", stats.Answers),
				slog.Int("judged", stats.Judged),
				slog.Int("skipped", stats.Skipped),
				slog.Int("errors", stats.Errors),
				slog.String("output", d.opts.Output))
		}
	}

	return d.finish(stats, start), nil
}

func (d *Driver) finish(stats Stats, start time.Time) Stats {
	stats.Elapsed = time.Since(start)
	return stats
}

// process takes one unit from PENDING to SKIPPED or RECORDED. line is the
// input line the unit came from.
func (d *Driver) process(ctx context.Context, line int, unit model.WorkUnit, done map[model.UnitKey]struct{}, stats *Stats) error {
	stats.Units++
	if unit.HasAnswer() {
		stats.Answers++
	}

	key := unit.Key()
	if _, ok := done[key]; ok {
		stats.Skipped++
		d.logger.Debug("skip", slog.String("key", string(key)), slog.String("id", unit.QuestionID))
		return nil
	}

	out, err := d.attempt(ctx, unit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Errors++
		d.logger.Warn("unit failed, recording unknown",
			slog.Int("line", line),
			slog.String("id", unit.QuestionID),
			slog.String("answer", unit.AnswerText),
			slog.String("kind", apperr.Kind(err)),
			slog.Any("error", err))
		out = Outcome{
			Judgment: model.Unknown(0),
			Evidence: &model.Evidence{Text: evidence.Truncate(apperr.Marker(err), d.opts.MaxChars)},
		}
	}
	if out.Judged {
		stats.Judged++
	}

	rec := model.NewRecord(unit, out.Judgment, out.Evidence)
	if err := d.ledger.Append(rec); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	done[key] = struct{}{}

	stats.Recorded++
	stats.Verdicts[rec.Verdict]++
	d.logger.Debug("recorded",
		slog.String("key", string(key)),
		slog.String("id", unit.QuestionID),
		slog.String("verdict", string(rec.Verdict)),
		slog.String("confidence", model.FormatConfidence(rec.Confidence)))
	return nil
}

// attempt retrieves evidence and judges one unit. Any returned error is
// mapped by the caller to an unknown record; panics become errors.
func (d *Driver) attempt(ctx context.Context, unit model.WorkUnit) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{}
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if !unit.HasAnswer() {
		return Outcome{Judgment: model.Unknown(0)}, nil
	}

	query := evidence.BuildQuery(unit.QuestionText, unit.AnswerText)
	title, found, err := d.retriever.FindBestTitle(ctx, query)
	if err != nil {
		return Outcome{}, err
	}
	if err := throttle.Sleep(ctx, d.opts.Delay); err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{Judgment: model.Unknown(0)}, nil
	}

	ev, err := d.retriever.FetchSummary(ctx, title)
	if err != nil {
		return Outcome{}, err
	}
	if err := throttle.Sleep(ctx, d.opts.Delay); err != nil {
		return Outcome{}, err
	}

	ev = evidence.TruncateEvidence(ev, d.opts.MaxChars)
	if ev.IsEmpty() {
		return Outcome{Judgment: model.Unknown(0), Evidence: ev}, nil
	}

	j, err := d.judge.Judge(ctx, unit.QuestionText, unit.AnswerText, *ev)
	if err != nil {
		return Outcome{}, err
	}
	j.Confidence = model.ClampConfidence(j.Confidence)
	return Outcome{Judgment: j, Evidence: ev, Judged: true}, nil
}

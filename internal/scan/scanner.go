// Package scan sweeps the (alpha, beta) weight grid and runs one exhaustive subset
// selection per grid point, either in-process one point after another or on a pool of
// workers with resumable per-point checkpoints.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tensorplex-labs/climsips/internal/results"
	"github.com/tensorplex-labs/climsips/internal/selection"
)

var (
	ErrNoCheckpointStore = errors.New("parallel scan requires a checkpoint store")
	ErrNoRunnerUp        = errors.New("no runner-up subset exists")
)

type Mode int

const (
	Sequential Mode = iota
	Parallel
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sequential", "seq":
		return Sequential, nil
	case "parallel", "par":
		return Parallel, nil
	}
	return 0, fmt.Errorf("unknown scan mode %q", s)
}

// Recorder observes scan progress. Parallel scans call it from several goroutines.
type Recorder interface {
	PointComputed(p GridPoint, evaluated int, took time.Duration)
	PointReused(p GridPoint)
	ScanCompleted(mode Mode, points int, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) PointComputed(GridPoint, int, time.Duration) {}
func (nopRecorder) PointReused(GridPoint)                       {}
func (nopRecorder) ScanCompleted(Mode, int, time.Duration)      {}

type Scanner struct {
	m          int
	alphaSteps int
	betaSteps  int

	mode          Mode
	workers       int
	runnerUp      bool
	target        string
	store         CheckpointStore
	recorder      Recorder
	progressEvery int
}

type Option func(*Scanner)

func WithMode(mode Mode) Option {
	return func(s *Scanner) { s.mode = mode }
}

// WithWorkers bounds the number of grid points evaluated at once in parallel mode.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithRunnerUp makes every row report the second-best subset instead of the best.
func WithRunnerUp(enabled bool) Option {
	return func(s *Scanner) { s.runnerUp = enabled }
}

// WithTarget namespaces checkpoint keys, typically by ensemble, region and metric choice.
func WithTarget(target string) Option {
	return func(s *Scanner) { s.target = target }
}

func WithCheckpointStore(store CheckpointStore) Option {
	return func(s *Scanner) { s.store = store }
}

func WithRecorder(r Recorder) Option {
	return func(s *Scanner) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithProgressEvery logs enumeration progress roughly every n combinations. Zero disables it.
func WithProgressEvery(n int) Option {
	return func(s *Scanner) { s.progressEvery = n }
}

func NewScanner(m, alphaSteps, betaSteps int, opts ...Option) (*Scanner, error) {
	if m < 1 {
		return nil, fmt.Errorf("%w: got %d", selection.ErrInvalidSubsetSize, m)
	}
	if alphaSteps < 1 || betaSteps < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidGrid, alphaSteps, betaSteps)
	}

	s := &Scanner{
		m:          m,
		alphaSteps: alphaSteps,
		betaSteps:  betaSteps,
		mode:       Sequential,
		workers:    1,
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Scanner) Mode() Mode {
	return s.mode
}

// Run scans the whole grid over triple. When dest is non-empty the rows are written
// there; dest must not exist when the scan starts.
//
// A sequential scan writes each row as soon as its point is done and removes the file
// if the scan fails. A parallel scan checkpoints every point, skips points already
// checkpointed by an earlier run, and writes dest only after all points succeeded.
// Either way the returned results are in grid order.
func (s *Scanner) Run(ctx context.Context, triple selection.NormalizedTriple, dest string) ([]Result, error) {
	logger := log.With().
		Str("run_id", uuid.NewString()).
		Str("mode", s.mode.String()).
		Str("target", s.target).
		Int("m", s.m).
		Logger()

	if err := s.preflight(triple, dest); err != nil {
		return nil, err
	}
	points, err := Grid(s.alphaSteps, s.betaSteps)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("members", triple.Len()).
		Int("points", len(points)).
		Int("workers", s.workers).
		Bool("runner_up", s.runnerUp).
		Str("dest", dest).
		Msg("starting alpha-beta scan")

	start := time.Now()
	var out []Result
	switch s.mode {
	case Sequential:
		out, err = s.runSequential(ctx, logger, triple, points, dest)
	case Parallel:
		out, err = s.runParallel(ctx, logger, triple, points, dest)
	default:
		err = fmt.Errorf("unknown scan mode %s", s.mode)
	}
	if err != nil {
		logger.Error().Err(err).Msg("scan failed")
		return nil, err
	}

	took := time.Since(start)
	s.recorder.ScanCompleted(s.mode, len(out), took)
	logger.Info().Dur("took", took).Int("points", len(out)).Msg("scan finished")
	return out, nil
}

// preflight rejects configuration errors before any subset is scored.
func (s *Scanner) preflight(triple selection.NormalizedTriple, dest string) error {
	if dest != "" {
		if err := results.EnsureAbsent(dest); err != nil {
			return err
		}
	}

	n := triple.Len()
	if s.m > n {
		return fmt.Errorf("%w: m=%d but only %d members remain", selection.ErrSubsetTooLarge, s.m, n)
	}
	if s.runnerUp {
		total, err := selection.Binomial(n, s.m)
		if err != nil {
			return err
		}
		if total < 2 {
			return fmt.Errorf("%w: only %d subset of size %d among %d members", ErrNoRunnerUp, total, s.m, n)
		}
	}
	if s.mode == Parallel && s.store == nil {
		return ErrNoCheckpointStore
	}
	return nil
}

func (s *Scanner) runSequential(ctx context.Context, logger zerolog.Logger, triple selection.NormalizedTriple,
	points []GridPoint, dest string,
) (out []Result, err error) {
	var w *results.Writer
	if dest != "" {
		w, err = results.Create(dest, s.m)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				_ = w.Abort()
			}
		}()
	}

	out = make([]Result, 0, len(points))
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := s.evaluate(triple, p)
		if err != nil {
			return nil, err
		}
		row := r.Row(s.runnerUp)
		logger.Info().
			Float64("alpha", row.Alpha).
			Float64("beta", row.Beta).
			Float64("min_val", row.MinVal).
			Strs("members", row.Members).
			Msg("grid point done")

		if w != nil {
			if err := w.WriteRow(row); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}

	if w != nil {
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Scanner) runParallel(ctx context.Context, logger zerolog.Logger, triple selection.NormalizedTriple,
	points []GridPoint, dest string,
) ([]Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, p := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			key := s.key(p)
			done, err := s.store.Exists(gctx, key)
			if err != nil {
				return err
			}
			if done {
				s.recorder.PointReused(p)
				logger.Debug().Stringer("point", p).Msg("checkpoint exists, skipping")
				return nil
			}

			r, err := s.evaluate(triple, p)
			if err != nil {
				return err
			}
			if err := s.store.Save(gctx, key, r); err != nil {
				return err
			}
			logger.Debug().Stringer("point", p).Float64("min_val", r.Row(s.runnerUp).MinVal).Msg("checkpoint saved")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in grid order, independent of completion order.
	out := make([]Result, 0, len(points))
	rows := make([]results.Row, 0, len(points))
	for _, p := range points {
		r, err := s.store.Load(ctx, s.key(p))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		rows = append(rows, r.Row(s.runnerUp))
	}

	if dest != "" {
		if err := results.Write(dest, s.m, rows); err != nil {
			return nil, err
		}
		logger.Info().Str("dest", dest).Msg("merged checkpoints")
	}
	return out, nil
}

func (s *Scanner) key(p GridPoint) CheckpointKey {
	return CheckpointKey{Target: s.target, M: s.m, Alpha: p.Alpha, Beta: p.Beta}
}

func (s *Scanner) evaluate(triple selection.NormalizedTriple, p GridPoint) (Result, error) {
	start := time.Now()

	cost, err := selection.BuildCostMatrix(p.Alpha, p.Beta, triple)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", p, err)
	}

	opts := []selection.SelectOption{selection.WithRunnerUp(s.runnerUp)}
	if s.progressEvery > 0 {
		opts = append(opts, selection.WithProgress(s.progressEvery, selection.LogProgress))
	}
	sel, err := selection.Select(cost, triple.Members, s.m, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", p, err)
	}
	if s.runnerUp && sel.RunnerUp == nil {
		return Result{}, fmt.Errorf("%s: %w: every subset ties with the best", p, ErrNoRunnerUp)
	}

	s.recorder.PointComputed(p, sel.Evaluated, time.Since(start))
	selection.LogReport(sel.Best, triple.Raw)

	return Result{
		Point:     p,
		Best:      sel.Best,
		RunnerUp:  sel.RunnerUp,
		Evaluated: sel.Evaluated,
	}, nil
}

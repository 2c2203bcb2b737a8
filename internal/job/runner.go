// Package job drives a backend analysis through the progress tracker.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dev101/coa/internal/client"
	"github.com/dev101/coa/internal/model"
	"github.com/dev101/coa/internal/progress"
)

// Backend is the part of client.Client the runner needs.
type Backend interface {
	StartAnalysis(ctx context.Context, req client.AnalysisRequest) (string, error)
	CheckAnalysis(ctx context.Context, id string) (*model.AnalysisCheck, error)
	DoneAnalysis(ctx context.Context, id string) (*model.RepoDetail, error)
}

var _ Backend = (*client.Client)(nil)

// ErrNoJob is returned by Result when the tracker holds no job id.
var ErrNoJob = errors.New("no analysis job")

// ErrNotCompleted is returned by Result before the job has completed.
var ErrNotCompleted = errors.New("analysis has not completed")

// Runner submits analyses and mirrors their backend progress into a tracker.
type Runner struct {
	Client      Backend
	Tracker     *progress.Tracker
	Interval    time.Duration
	MaxFailures int
	Logger      *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Submit starts a new analysis and returns the backend's id for it. The
// previous job is discarded only once the backend has accepted the new one.
func (r *Runner) Submit(ctx context.Context, req client.AnalysisRequest) (string, error) {
	id, err := r.Client.StartAnalysis(ctx, req)
	if err != nil {
		return "", err
	}

	jobID := localJobID(id, r.Tracker.State().JobID)
	r.Tracker.Reset()
	r.Tracker.SetJobID(jobID)
	r.Tracker.SetAnalysisID(id)
	r.Tracker.Start()
	r.logger().Info("analysis submitted", "analysis", id, "job", jobID, "repo", req.RepoURL)
	return id, nil
}

// localJobID keeps numeric backend ids as the job id. Other ids (the backend
// hands out UUIDs) get the next number after the previous job.
func localJobID(id string, prev int64) int64 {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n >= 0 {
		return n
	}
	if prev < 0 {
		return 1
	}
	return prev + 1
}

// Watch polls the backend until the tracker leaves Running or ctx is done,
// and returns the final state.
func (r *Runner) Watch(ctx context.Context) (progress.State, error) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}
	maxFailures := r.MaxFailures
	if maxFailures < 1 {
		maxFailures = 1
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		s := r.Tracker.State()
		if s.Phase != progress.Running {
			return s, nil
		}
		if s.Analysis() == "" {
			r.Tracker.Fail(ErrNoJob)
			return r.Tracker.State(), ErrNoJob
		}

		if err := r.check(ctx, s.Analysis()); err != nil {
			if ctx.Err() != nil {
				return r.Tracker.State(), ctx.Err()
			}
			failures++
			r.logger().Warn("checking analysis failed", "analysis", s.Analysis(), "attempt", failures, "error", err)
			if errors.Is(err, client.ErrRetryAnalysis) || failures >= maxFailures {
				r.Tracker.Fail(err)
				return r.Tracker.State(), err
			}
		} else {
			failures = 0
		}

		if r.Tracker.State().Phase != progress.Running {
			continue
		}
		select {
		case <-ctx.Done():
			return r.Tracker.State(), ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) check(ctx context.Context, id string) error {
	check, err := r.Client.CheckAnalysis(ctx, id)
	if err != nil {
		return err
	}
	r.logger().Debug("analysis progress", "analysis", id, "percent", check.Percentage)
	if check.Percentage >= 100 {
		r.Tracker.Complete()
		return nil
	}
	r.Tracker.Advance(check.Percentage)
	return nil
}

// Result fetches the finished analysis of the tracked job.
func (r *Runner) Result(ctx context.Context) (*model.RepoDetail, error) {
	s := r.Tracker.State()
	id := s.Analysis()
	if id == "" {
		return nil, ErrNoJob
	}
	if !s.Completed() {
		return nil, fmt.Errorf("analysis %s is %s: %w", id, s.Phase, ErrNotCompleted)
	}
	return r.Client.DoneAnalysis(ctx, id)
}

// Package orchestrator coordinates a publish run across all configured
// platform targets.
//
// Each target runs as an independent unit of work: its driver is constructed
// with its own resolved configuration and shares no mutable state with
// sibling targets. One target failing never interrupts siblings that are
// already running, but the run as a whole fails if any target failed.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/modpub/modpub/pkg/publisher"
)

// State is a target's position in its publish lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateUploading  State = "uploading"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Target pairs a driver with the slot its result is persisted to.
type Target struct {
	Publisher  publisher.Publisher
	ResultPath string
}

// Dependent is implemented by drivers that must run after another target in
// the same run (e.g. GitHub targets attaching assets to a sibling's release).
type Dependent interface {
	DependsOn() string
}

// Outcome is the final state of one target.
type Outcome struct {
	Name   string
	Kind   publisher.Kind
	State  State
	Result publisher.Result
	Err    error
}

// Summary aggregates the outcome of every target in a run.
type Summary struct {
	Outcomes []Outcome
}

// Failed returns the outcomes of targets that did not succeed.
func (s *Summary) Failed() []Outcome {
	var failed []Outcome
	for _, o := range s.Outcomes {
		if o.State == StateFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithDryRun enables dry-run mode: no network calls, files staged locally,
// results synthesized with randomized identifiers.
func WithDryRun(stagingDir string) RunnerOption {
	return func(r *Runner) {
		r.dryRun = true
		r.stagingDir = stagingDir
	}
}

// WithLogger sets the logger for run progress
func WithLogger(log *logrus.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// Runner executes a publish run.
type Runner struct {
	targets    []Target
	dryRun     bool
	stagingDir string
	log        *logrus.Logger
}

// NewRunner creates a runner over the configured targets.
func NewRunner(targets []Target, opts ...RunnerOption) *Runner {
	r := &Runner{targets: targets}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	return r
}

// Run publishes every target and returns the aggregated summary. Targets
// without dependencies run concurrently; targets that depend on a sibling's
// result run in a second wave once every independent target has finished.
//
// The returned error is non-nil when any target failed; the summary still
// describes every target, including the successful ones.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	independent, dependent := r.partition()

	summary := &Summary{}
	byName := make(map[string]*Outcome)

	runWave := func(targets []Target) {
		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, target := range targets {
			wg.Add(1)
			go func(target Target) {
				defer wg.Done()
				outcome := r.runTarget(ctx, target)

				mu.Lock()
				defer mu.Unlock()
				summary.Outcomes = append(summary.Outcomes, outcome)
				byName[outcome.Name] = &summary.Outcomes[len(summary.Outcomes)-1]
			}(target)
		}
		wg.Wait()
	}

	runWave(independent)

	dependentNames := make(map[string]bool, len(dependent))
	for _, target := range dependent {
		dependentNames[target.Publisher.Name()] = true
	}

	// Fail dependents of failed targets up front; run the rest.
	var runnable []Target
	for _, target := range dependent {
		dep := target.Publisher.(Dependent).DependsOn()
		parent, ok := byName[dep]
		if !ok {
			err := fmt.Errorf("depends on unknown target %q", dep)
			if dependentNames[dep] {
				err = fmt.Errorf("depends on target %q, which itself depends on another target; dependency chains are not supported", dep)
			}
			summary.Outcomes = append(summary.Outcomes, Outcome{
				Name:  target.Publisher.Name(),
				Kind:  target.Publisher.Kind(),
				State: StateFailed,
				Err:   err,
			})
			continue
		}
		if parent.State == StateFailed {
			summary.Outcomes = append(summary.Outcomes, Outcome{
				Name:  target.Publisher.Name(),
				Kind:  target.Publisher.Kind(),
				State: StateFailed,
				Err:   fmt.Errorf("depends on failed target %q", dep),
			})
			continue
		}
		runnable = append(runnable, target)
	}
	runWave(runnable)

	if failed := summary.Failed(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, o := range failed {
			names = append(names, o.Name)
		}
		return summary, fmt.Errorf("%d of %d targets failed: %s", len(failed), len(r.targets), strings.Join(names, ", "))
	}

	return summary, nil
}

// partition splits targets into those that can run immediately and those
// that wait on a sibling's result.
func (r *Runner) partition() (independent, dependent []Target) {
	for _, target := range r.targets {
		if dep, ok := target.Publisher.(Dependent); ok && dep.DependsOn() != "" {
			dependent = append(dependent, target)
			continue
		}
		independent = append(independent, target)
	}
	return independent, dependent
}

// runTarget drives one target through its state machine.
func (r *Runner) runTarget(ctx context.Context, target Target) Outcome {
	p := target.Publisher
	log := r.log.WithFields(logrus.Fields{
		"target":   p.Name(),
		"platform": p.Kind(),
	})

	outcome := Outcome{Name: p.Name(), Kind: p.Kind(), State: StateValidating}

	if err := p.Validate(r.dryRun); err != nil {
		log.WithError(err).Error("validation failed")
		outcome.State = StateFailed
		outcome.Err = err
		return outcome
	}

	var (
		result publisher.Result
		err    error
	)
	if r.dryRun {
		result, err = r.dryRunTarget(p, log)
	} else {
		outcome.State = StateUploading
		log.Info("uploading")
		result, err = p.Publish(ctx)
	}

	if err != nil {
		log.WithError(err).Error("publish failed")
		outcome.State = StateFailed
		outcome.Err = err
		return outcome
	}

	if err := publisher.WriteResult(target.ResultPath, result); err != nil {
		log.WithError(err).Error("failed to persist result")
		outcome.State = StateFailed
		outcome.Err = err
		return outcome
	}

	log.Info("published")
	outcome.State = StateSucceeded
	outcome.Result = result
	return outcome
}

// dryRunTarget verifies that every local file exists, stages copies of them,
// and synthesizes a randomized result in place of an upload.
func (r *Runner) dryRunTarget(p publisher.Publisher, log *logrus.Entry) (publisher.Result, error) {
	opts := p.Options()
	staging := filepath.Join(r.stagingDir, p.Name())

	for _, file := range p.Files() {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("%s not found", file)
		}
		if err := copyFile(file, filepath.Join(staging, filepath.Base(file))); err != nil {
			return nil, err
		}
		log.WithField("file", filepath.Base(file)).Info("staged file")
	}

	p.DryRunInfo(log)
	log.WithFields(logrus.Fields{
		"displayName": opts.DisplayName,
		"version":     opts.Version,
	}).Info("dry run")

	return p.DryRunResult(), nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return nil
}

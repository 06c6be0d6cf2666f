// Package engine drives the execution plan's per-host workers, enforcing
// the sync barrier (spec.md §4.E, §5): every sync-host worker must finish
// its SYNC command set before any non-sync worker is allowed to start its
// own SYNC command set.
package engine

import (
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/jozias/mussh/internal/plan"
	"github.com/jozias/mussh/internal/transport"
)

// Result is one per-command outcome, tagged with the host and phase it
// ran under. Exactly one of Metric or Err is set.
type Result struct {
	Hostname string
	CmdName  string
	Phase    plan.CmdKind
	Metric   *transport.Metric
	Err      error
}

// Results is the aggregated, unordered (completion-order) output of a Run.
type Results []Result

// Errors collects every failed Result into a single aggregate error, or
// nil if every command succeeded. Intended for end-of-run summaries; the
// per-command detail in Results is never collapsed away.
func (r Results) Errors() error {
	var merr *multierror.Error
	for _, res := range r {
		if res.Err != nil {
			merr = multierror.Append(merr, res.Err)
		}
	}
	return merr.ErrorOrNil()
}

// HostLoggerFunc returns the per-host command-output sink for hostname.
// The engine calls it once per worker; implementations may open a file or
// return a shared logger.
type HostLoggerFunc func(hostname string) hclog.Logger

// Engine holds the dependencies shared by every worker: the stdout/stderr
// progress sinks and the per-host command-output sink factory. It has no
// other mutable state and may be reused across multiple Run calls.
type Engine struct {
	Stdout hclog.Logger
	Stderr hclog.Logger

	// HostLogger returns the sink commands' stdout lines are traced to.
	// If nil, output is discarded.
	HostLogger HostLoggerFunc

	// Synchronous serializes dispatch: the engine waits for each worker's
	// result batch before spawning the next, despite still using one
	// goroutine per host. Preserved for compatibility with the original
	// tool's toggle (spec.md §9 item 3); default false.
	Synchronous bool

	// DryRun, when true, skips spawning any worker and returns no
	// results.
	DryRun bool
}

type batch struct {
	results []Result
}

// Run executes p's hosts per the worker protocol in spec.md §4.E and
// returns the aggregated result list in completion order (not plan
// order — callers must not depend on it, per spec.md §5).
func (e *Engine) Run(p *plan.Plan) Results {
	if e.DryRun {
		return nil
	}

	entries := p.Entries()
	count := len(entries)
	if count == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, entry := range entries {
		if p.IsSyncHost(entry.Hostname) {
			wg.Add(1)
		}
	}

	out := make(chan batch, count)
	var results Results

	for _, entry := range entries {
		isSyncHost := p.IsSyncHost(entry.Hostname)
		hostLogger := e.hostLogger(entry.Hostname)
		sinks := transport.Sinks{Stdout: e.Stdout, Stderr: e.Stderr, CmdOut: hostLogger}

		go e.runWorker(entry, isSyncHost, sinks, &wg, out)

		// Synchronous mode receives one batch per spawned worker before
		// spawning the next, serializing the pipeline despite each host
		// still running on its own goroutine — preserved for
		// compatibility with the original tool's toggle, "of
		// questionable utility" (spec.md §9 item 3).
		if e.Synchronous {
			b := <-out
			results = append(results, b.results...)
		}
	}

	if e.Synchronous {
		return results
	}

	for i := 0; i < count; i++ {
		b := <-out
		results = append(results, b.results...)
	}
	return results
}

func (e *Engine) hostLogger(hostname string) hclog.Logger {
	if e.HostLogger == nil {
		return hclog.NewNullLogger()
	}
	if l := e.HostLogger(hostname); l != nil {
		return l
	}
	return hclog.NewNullLogger()
}

// runWorker implements the per-host worker protocol (spec.md §4.E):
// run PRE sequentially; if this host is a sync host, run SYNC and signal
// the barrier; otherwise wait on the barrier before running SYNC.
func (e *Engine) runWorker(entry plan.Entry, isSyncHost bool, sinks transport.Sinks, wg *sync.WaitGroup, out chan<- batch) {
	var results []Result
	results = append(results, execSequence(sinks, entry, plan.PRE)...)

	if isSyncHost {
		results = append(results, execSequence(sinks, entry, plan.SYNC)...)
		wg.Done()
	} else {
		wg.Wait()
		results = append(results, execSequence(sinks, entry, plan.SYNC)...)
	}

	out <- batch{results: results}
}

func execSequence(sinks transport.Sinks, entry plan.Entry, phase plan.CmdKind) []Result {
	cmds := entry.Commands[phase]
	results := make([]Result, 0, len(cmds))
	for _, c := range cmds {
		metric, err := transport.ExecuteOnHost(sinks, entry.Host, c.Name, c.Command)
		res := Result{Hostname: entry.Hostname, CmdName: c.Name, Phase: phase}
		if err != nil {
			res.Err = err
		} else {
			m := metric
			res.Metric = &m
		}
		results = append(results, res)
	}
	return results
}

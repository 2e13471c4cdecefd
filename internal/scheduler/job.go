// Package scheduler implements the parallel job scheduler (C8): mapping a
// retrieved Graph<Source> to a layered job DAG with Fresh/Dirty work states,
// a fixed-size worker pool executing frontier rounds, and composition of
// compiler invocations per target.
package scheduler

import (
	"github.com/elba-lang/elba/internal/cache"
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

// TargetKind distinguishes the five build target shapes a package can carry.
type TargetKind int

const (
	TargetLib TargetKind = iota
	TargetLibCodegen
	TargetBin
	TargetTest
	TargetDoc
)

func (k TargetKind) String() string {
	switch k {
	case TargetLib:
		return "lib"
	case TargetLibCodegen:
		return "lib-codegen"
	case TargetBin:
		return "bin"
	case TargetTest:
		return "test"
	case TargetDoc:
		return "doc"
	default:
		return "?"
	}
}

// Target names one thing to build for a package. Index addresses the
// manifest's Targets.Bins/Targets.Test slice for TargetBin/TargetTest;
// unused otherwise.
type Target struct {
	Kind  TargetKind
	Index int
}

// sortTargets places library targets first so that downstream dependents
// observe a Fresh library as soon as possible, and keeps
// everything else in a stable, deterministic order otherwise.
func sortTargets(targets []Target) []Target {
	out := make([]Target, len(targets))
	copy(out, targets)
	rank := func(k TargetKind) int {
		switch k {
		case TargetLib:
			return 0
		case TargetLibCodegen:
			return 1
		case TargetBin:
			return 2
		case TargetTest:
			return 3
		case TargetDoc:
			return 4
		default:
			return 5
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && rank(out[j-1].Kind) > rank(out[j].Kind); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// WorkKind distinguishes the three states a job's work can be in.
type WorkKind int

const (
	// WorkDirty means the job still needs a compiler invocation.
	WorkDirty WorkKind = iota
	// WorkFresh means a build/<hash>/ already satisfies this job.
	WorkFresh
	// WorkNone means the job completed (or was never dirty) but has no
	// library target, so there is no Binary to hand to dependents.
	WorkNone
)

// Work is the closed tagged union `Fresh(Binary) | Dirty(Source, BuildHash) |
// None`.
type Work struct {
	Kind   WorkKind
	Source *cache.Source   // set iff Kind == WorkDirty
	Hash   ident.BuildHash // set for Dirty and Fresh
	Binary *cache.Binary   // set iff Kind == WorkFresh
}

// Job is one node of the scheduler's job graph: a package's identity, the
// targets to build for it, and its current Work state.
type Job struct {
	Id      ident.PackageId
	Version version.Version
	Targets []Target
	Work    Work
}

// Fresh reports whether the job requires no further compiler work.
func (j *Job) Fresh() bool { return j.Work.Kind != WorkDirty }

// HasLib reports whether this job's target list includes a library build,
// the only target kind that yields a Binary dependents can consume.
func (j *Job) HasLib() bool {
	for _, t := range j.Targets {
		if t.Kind == TargetLib {
			return true
		}
	}
	return false
}

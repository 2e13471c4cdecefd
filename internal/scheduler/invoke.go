package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elba-lang/elba/internal/cache"
	"github.com/elba-lang/elba/internal/compiler"
	"github.com/elba-lang/elba/internal/graph"
	"github.com/pkg/errors"
)

// runJob executes a single Dirty job's targets in sequence (targets of the
// same package are never parallelized within a job) and
// returns the library Binary on success, or (nil, nil) if the job has no
// library target.
func runJob(ctx context.Context, bctx *BuildContext, jobs *graph.Graph[*Job], i int, job *Job, external *cache.OutputLayout) (*cache.Binary, error) {
	src := job.Work.Source
	layout := external
	if layout == nil {
		var err error
		layout, err = bctx.Cache.CheckoutTmp(job.Work.Hash)
		if err != nil {
			return nil, errors.Wrapf(err, "checking out tmp layout for %s", job.Id)
		}
	}

	includes := depIncludes(jobs, i)

	var builtLib bool
	for _, t := range job.Targets {
		var err error
		switch t.Kind {
		case TargetLib:
			err = invokeLib(ctx, bctx, src, layout, includes)
			if err == nil {
				builtLib = true
			}
		case TargetLibCodegen:
			err = invokeLibCodegen(ctx, bctx, src, layout, includes)
		case TargetBin:
			err = invokeBin(ctx, bctx, src, layout, includes, t.Index)
		case TargetTest:
			err = invokeTest(ctx, bctx, src, layout, includes, t.Index)
		case TargetDoc:
			err = invokeDoc(ctx, bctx, src, layout, includes)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "building %s target %s", job.Id, t.Kind)
		}
	}

	if !builtLib {
		return nil, nil
	}
	if external != nil {
		return &cache.Binary{Dir: external.Dir, Hash: job.Work.Hash}, nil
	}
	return bctx.Cache.StoreBuild(layout, job.Work.Hash)
}

// depInclude is one dependency's library directory, passed to the compiler
// as an include path.
type depInclude struct {
	Dir string
}

// depIncludes collects the include paths of i's dependencies. By the
// frontier invariant every child is already Fresh by the time i runs; a
// child with Work == None (no lib target) contributes nothing.
func depIncludes(jobs *graph.Graph[*Job], i int) []depInclude {
	var out []depInclude
	for _, c := range jobs.Children(i) {
		cj := jobs.Node(c)
		if cj.Work.Kind == WorkFresh && cj.Work.Binary != nil {
			out = append(out, depInclude{Dir: filepath.Join(cj.Work.Binary.Dir, "lib")})
		}
	}
	return out
}

func includeArgs(includes []depInclude) []string {
	args := make([]string, 0, len(includes)*2)
	for _, inc := range includes {
		args = append(args, "-i", inc.Dir)
	}
	return args
}

// invokeLib runs `compiler --check` over the library's module files with
// each dependency's build path as an include, then renames the produced
// .ibc outputs into lib/.
func invokeLib(ctx context.Context, bctx *BuildContext, src *cache.Source, layout *cache.OutputLayout, includes []depInclude) error {
	lib := src.Manifest.Targets.Lib
	if lib == nil {
		return nil
	}
	mods := moduleFiles(src.Dir, lib.Path, lib.Mods)
	args := append([]string{"--check"}, includeArgs(includes)...)
	args = append(args, lib.IdrisOpts...)
	args = append(args, mods...)
	if _, err := compiler.New(bctx.Compiler.Program, args...).WithDir(src.Dir).Run(ctx); err != nil {
		return err
	}
	return collectIbc(filepath.Join(src.Dir, lib.Path), layout.LibDir())
}

// invokeLibCodegen codegens the library's export list into a library
// artifact, for backends that need a separate codegen step beyond --check.
func invokeLibCodegen(ctx context.Context, bctx *BuildContext, src *cache.Source, layout *cache.OutputLayout, includes []depInclude) error {
	lib := src.Manifest.Targets.Lib
	if lib == nil {
		return nil
	}
	mods := moduleFiles(src.Dir, lib.Path, lib.Mods)
	args := append([]string{"--codegen", bctx.Backend}, includeArgs(includes)...)
	args = append(args, "-o", layout.LibDir())
	args = append(args, lib.IdrisOpts...)
	args = append(args, mods...)
	_, err := compiler.New(bctx.Compiler.Program, args...).WithDir(src.Dir).Run(ctx)
	return err
}

// invokeBin codegens the i'th bin target's entry module into an executable
// under bin/.
func invokeBin(ctx context.Context, bctx *BuildContext, src *cache.Source, layout *cache.OutputLayout, includes []depInclude, i int) error {
	bins := src.Manifest.Targets.Bins
	if i < 0 || i >= len(bins) {
		return fmt.Errorf("bin target index %d out of range", i)
	}
	b := bins[i]
	main := filepath.Join(src.Dir, b.Path, b.Main)
	out := filepath.Join(layout.BinDir(), b.Name)
	args := append([]string{"--codegen", bctx.Backend, "-o", out}, includeArgs(includes)...)
	args = append(args, b.IdrisOpts...)
	args = append(args, main)
	_, err := compiler.New(bctx.Compiler.Program, args...).WithDir(src.Dir).Run(ctx)
	return err
}

// invokeTest codegens the i'th test target into a test binary under bin/;
// running it is the test runner's job, not this one's.
func invokeTest(ctx context.Context, bctx *BuildContext, src *cache.Source, layout *cache.OutputLayout, includes []depInclude, i int) error {
	tests := src.Manifest.Targets.Test
	if i < 0 || i >= len(tests) {
		return fmt.Errorf("test target index %d out of range", i)
	}
	t := tests[i]
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("test-%d", i)
	}
	main := filepath.Join(src.Dir, t.Path, t.Main)
	out := filepath.Join(layout.BinDir(), name)
	args := append([]string{"--codegen", bctx.Backend, "-o", out}, includeArgs(includes)...)
	args = append(args, t.IdrisOpts...)
	args = append(args, main)
	_, err := compiler.New(bctx.Compiler.Program, args...).WithDir(src.Dir).Run(ctx)
	return err
}

// invokeDoc codegens documentation for the library into doc/.
func invokeDoc(ctx context.Context, bctx *BuildContext, src *cache.Source, layout *cache.OutputLayout, includes []depInclude) error {
	lib := src.Manifest.Targets.Lib
	if lib == nil {
		return nil
	}
	mods := moduleFiles(src.Dir, lib.Path, lib.Mods)
	args := append([]string{"--mkdoc"}, includeArgs(includes)...)
	args = append(args, "-o", layout.DocDir())
	args = append(args, mods...)
	_, err := compiler.New(bctx.Compiler.Program, args...).WithDir(src.Dir).Run(ctx)
	return err
}

// moduleFiles joins a library's declared module names onto its path,
// producing the sequence of module files the compiler is invoked over.
func moduleFiles(srcDir, path string, mods []string) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = filepath.Join(srcDir, path, filepath.FromSlash(m)+".idr")
	}
	return out
}

// collectIbc renames produced .ibc outputs from a library's source
// directory into the build output's lib/ directory. The lib/ directory may
// not exist yet when the caller supplied an external OutputLayout.
func collectIbc(fromDir, libDir string) error {
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(fromDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".ibc" {
			continue
		}
		from := filepath.Join(fromDir, e.Name())
		to := filepath.Join(libDir, e.Name())
		if err := os.Rename(from, to); err != nil {
			return errors.Wrapf(err, "moving %s into lib/", e.Name())
		}
	}
	return nil
}

package scheduler

import (
	"github.com/elba-lang/elba/internal/cache"
	"github.com/elba-lang/elba/internal/compiler"
	"github.com/elba-lang/elba/internal/shell"
)

// BuildContext carries everything a build round needs, passed explicitly
// rather than stashed in package state.
type BuildContext struct {
	Cache    *cache.Cache
	Compiler compiler.Descriptor
	Threads  int
	Backend  string
	Options  []byte
	Sh       *shell.Shell
}

// Runner optionally prefixes test binary invocations (e.g. a cross-platform
// emulator); empty means run the test binary directly.
type Runner struct {
	Program string
	Args    []string
}

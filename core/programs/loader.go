package programs

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/seqmine/seqmine/core/vm"
)

const defaultLoaderCacheSize = 4096

// DependencyLoader compiles repository programs on demand and resolves their
// seq calls recursively. Compiled programs are immutable and kept in an LRU
// cache, so one loader can be shared by all workers.
type DependencyLoader struct {
	repo         *Repository
	maxRegisters int
	cache        *lru.Cache
}

// NewDependencyLoader creates a loader over repo. A non-positive cacheSize
// selects the default.
func NewDependencyLoader(repo *Repository, maxRegisters int, cacheSize int) *DependencyLoader {
	if cacheSize <= 0 {
		cacheSize = defaultLoaderCacheSize
	}
	cache, _ := lru.New(cacheSize)
	return &DependencyLoader{repo: repo, maxRegisters: maxRegisters, cache: cache}
}

func (l *DependencyLoader) Repository() *Repository { return l.repo }

// LoadProgram returns the compiled program for id together with everything it
// calls. It implements vm.ProgramLoader.
func (l *DependencyLoader) LoadProgram(id uint32) (*vm.Program, error) {
	return (&resolver{loader: l, stack: make(map[uint32]struct{})}).LoadProgram(id)
}

// LoadParsed returns the parsed, unresolved form of the program for id.
func (l *DependencyLoader) LoadParsed(id uint32) (*vm.ParsedProgram, error) {
	text, err := l.repo.ReadProgram(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: A%06d", vm.ErrProgramNotAvailable, id)
		}
		return nil, err
	}
	parsed, err := vm.ParseProgram(text)
	if err != nil {
		return nil, errors.Wrapf(err, "parse A%06d", id)
	}
	return parsed, nil
}

// Compile compiles a parsed program that is not part of the repository, such
// as a mutated candidate, resolving its calls through the loader.
func (l *DependencyLoader) Compile(parsed *vm.ParsedProgram) (*vm.Program, error) {
	return parsed.Compile(0, l.maxRegisters, &resolver{loader: l, stack: make(map[uint32]struct{})})
}

// Purge drops all compiled programs, used after the repository changed.
func (l *DependencyLoader) Purge() {
	l.cache.Purge()
}

// resolver tracks the chain of programs being compiled by one top-level load,
// which is how cycles are detected.
type resolver struct {
	loader *DependencyLoader
	stack  map[uint32]struct{}
}

func (r *resolver) LoadProgram(id uint32) (*vm.Program, error) {
	if cached, ok := r.loader.cache.Get(id); ok {
		return cached.(*vm.Program), nil
	}
	if _, ok := r.stack[id]; ok {
		return nil, fmt.Errorf("%w: A%06d", vm.ErrCyclicDependency, id)
	}
	parsed, err := r.loader.LoadParsed(id)
	if err != nil {
		return nil, err
	}
	r.stack[id] = struct{}{}
	defer delete(r.stack, id)

	program, err := parsed.Compile(id, r.loader.maxRegisters, r)
	if err != nil {
		log.Debug("Failed to compile program", "id", id, "err", err)
		return nil, errors.Wrapf(err, "compile A%06d", id)
	}
	r.loader.cache.Add(id, program)
	return program, nil
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/core/programs"
	"github.com/seqmine/seqmine/core/vm"
)

func TestEvalProgram(t *testing.T) {
	dir := t.TempDir()
	repo := programs.NewRepository(filepath.Join(dir, "loda"))
	require.NoError(t, repo.WriteProgram(5843, "mul $0,2\n"))
	loader := programs.NewDependencyLoader(repo, vm.DefaultConfig.MaxRegisters, 0)

	program, err := loadProgram(loader, "A005843")
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, printTerms(&out, program, 5, vm.DefaultConfig))
	assert.Equal(t, "0,2,4,6,8\n", out.String())

	// A file calling into the repository.
	file := filepath.Join(dir, "candidate.asm")
	require.NoError(t, os.WriteFile(file, []byte("seq $0,5843\nadd $0,1\n"), 0644))
	program, err = loadProgram(loader, file)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, printTerms(&out, program, 4, vm.DefaultConfig))
	assert.Equal(t, "1,3,5,7\n", out.String())

	_, err = loadProgram(loader, "A000045")
	assert.ErrorIs(t, err, vm.ErrProgramNotAvailable)
}

func TestEvalProgramFault(t *testing.T) {
	dir := t.TempDir()
	loader := programs.NewDependencyLoader(programs.NewRepository(dir), vm.DefaultConfig.MaxRegisters, 0)
	file := filepath.Join(dir, "div.asm")
	// 1/(n-2) faults at n = 2.
	require.NoError(t, os.WriteFile(file, []byte("sub $0,2\nmov $1,1\ndiv $1,$0\nmov $0,$1\n"), 0644))
	program, err := loadProgram(loader, file)
	require.NoError(t, err)

	var out bytes.Buffer
	err = printTerms(&out, program, 5, vm.DefaultConfig)
	require.Error(t, err)
	assert.True(t, vm.IsEvalError(err))
	assert.Equal(t, "0,-1\n", out.String())
}

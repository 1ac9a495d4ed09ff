package programs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/core/vm"
)

func TestProgramIDFromPath(t *testing.T) {
	id, err := ProgramIDFromPath("/tmp/oeis/000/A000045.asm")
	require.NoError(t, err)
	assert.Equal(t, uint32(45), id)

	for _, path := range []string{"A45.asm", "B000045.asm", "A000045.txt", "Axxxxxx.asm"} {
		_, err := ProgramIDFromPath(path)
		assert.ErrorIs(t, err, ErrInvalidProgramPath, path)
	}
	ids := ProgramIDsFromPaths([]string{"x/A000142.asm", "README.md", "y/A000045.asm"})
	assert.Equal(t, []uint32{45, 142}, ids)
}

func TestRepositoryLayout(t *testing.T) {
	repo := NewRepository(t.TempDir())
	assert.Equal(t, filepath.Join(repo.Root(), "oeis", "123", "A123456.asm"), repo.Path(123456))

	require.NoError(t, repo.WriteProgram(45, "mov $0,1\n"))
	require.NoError(t, repo.WriteProgram(123456, "mov $0,2\n"))
	require.NoError(t, os.WriteFile(filepath.Join(repo.OeisDir(), "notes.txt"), []byte("x"), 0644))

	ids, err := repo.ProgramIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint32{45, 123456}, ids)
}

func TestDependencyLoader(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.WriteProgram(27, "add $0,1\n"))
	require.NoError(t, repo.WriteProgram(5, "seq $0,27\nmul $0,2\n"))
	loader := NewDependencyLoader(repo, 0, 0)

	program, err := loader.LoadProgram(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), program.ID())
	result, err := program.Run(vm.NewRegisterValue(3), vm.DefaultConfig, nil)
	require.NoError(t, err)
	assert.Equal(t, "8", result.String())

	// Compiled programs are shared.
	again, err := loader.LoadProgram(5)
	require.NoError(t, err)
	assert.Same(t, program, again)

	_, err = loader.LoadProgram(99)
	assert.ErrorIs(t, err, vm.ErrProgramNotAvailable)

	parsed, err := vm.ParseProgram("seq $0,5\n")
	require.NoError(t, err)
	candidate, err := loader.Compile(parsed)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), candidate.ID())
}

func TestDependencyLoaderCycle(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.WriteProgram(1, "seq $0,2\n"))
	require.NoError(t, repo.WriteProgram(2, "seq $0,3\n"))
	require.NoError(t, repo.WriteProgram(3, "seq $0,1\n"))
	require.NoError(t, repo.WriteProgram(4, "seq $0,4\n"))
	loader := NewDependencyLoader(repo, 0, 0)

	_, err := loader.LoadProgram(1)
	assert.ErrorIs(t, err, vm.ErrCyclicDependency)
	_, err = loader.LoadProgram(4)
	assert.ErrorIs(t, err, vm.ErrCyclicDependency)
}

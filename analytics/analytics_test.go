package analytics

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/core/programs"
	"github.com/seqmine/seqmine/core/vm"
)

func TestPopularityCluster(t *testing.T) {
	tests := []struct {
		dependents int
		cluster    uint8
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 2}, {4, 3}, {255, 8}, {256, 9}, {100000, 9},
	}
	for _, test := range tests {
		assert.Equal(t, test.cluster, PopularityCluster(test.dependents), "dependents %d", test.dependents)
	}
}

func newTestRepository(t *testing.T) *programs.Repository {
	repo := programs.NewRepository(t.TempDir())
	require.NoError(t, repo.WriteProgram(27, "add $0,1\n"))
	require.NoError(t, repo.WriteProgram(5, "seq $0,27\nmul $0,2\n"))
	require.NoError(t, repo.WriteProgram(6, "seq $0,27\nseq $0,27\nadd $0,2\n"))
	require.NoError(t, repo.WriteProgram(7, "seq $0,5\n"))
	require.NoError(t, repo.WriteProgram(8, "lpb $0\n"))
	return repo
}

func TestRunForce(t *testing.T) {
	repo := newTestRepository(t)
	dir := t.TempDir()
	deny := filepath.Join(t.TempDir(), "deny.txt")
	require.NoError(t, os.WriteFile(deny, []byte("# never\nA000100: boring\nA000101\n"), 0644))

	old := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []uint32{5, 6, 7} {
		require.NoError(t, os.Chtimes(repo.Path(id), old, old))
	}
	require.NoError(t, os.Chtimes(repo.Path(27), old.Add(time.Hour), old.Add(time.Hour)))

	a := New(Config{RepositoryDir: repo.Root(), AnalyticsDir: dir, DenyFile: deny, Expiry: time.Hour})
	assert.True(t, a.Expired())
	require.NoError(t, a.RunForce())
	assert.False(t, a.Expired())

	snapshot, err := Load(dir)
	require.NoError(t, err)
	// A000027 has two dependents, A000005 one, the rest none. A000008 does not compile.
	assert.Equal(t, []uint32{6, 7}, snapshot.Popular.Cluster(0))
	assert.Equal(t, []uint32{5}, snapshot.Popular.Cluster(1))
	assert.Equal(t, []uint32{27}, snapshot.Popular.Cluster(2))
	assert.Equal(t, 4, snapshot.Popular.Len())

	for _, id := range []uint32{5, 6, 7, 8, 27, 100, 101} {
		assert.True(t, snapshot.DontMine.Contains(id), "id %d", id)
	}
	assert.False(t, snapshot.DontMine.Contains(45))

	rng := rand.New(rand.NewSource(1))
	constant, ok := snapshot.Constants.ChooseConstant(rng, vm.MUL)
	require.True(t, ok)
	assert.Equal(t, int64(2), constant)
	_, ok = snapshot.Constants.ChooseConstant(rng, vm.DIV)
	assert.False(t, ok)

	next, ok := snapshot.Bigrams.ChooseNext(rng, vm.InstructionID(0))
	require.True(t, ok)
	assert.Contains(t, []vm.InstructionID{vm.ADD, vm.SEQ}, next)
	_, ok = snapshot.Bigrams.ChooseNext(rng, vm.MUL)
	assert.False(t, ok)

	// Every valid program only writes $0 and reads no register.
	target, ok := snapshot.Targets.ChooseNext(rng, RegisterStart)
	require.True(t, ok)
	assert.Equal(t, vm.RegisterIndex(0), target)
	_, ok = snapshot.Sources.ChooseNext(rng, RegisterStart)
	assert.False(t, ok)

	assert.Equal(t, 4, snapshot.Recent.Len())
	assert.Equal(t, []uint32{27}, snapshot.Recent.Cluster(0))
}

func TestRunIfExpired(t *testing.T) {
	repo := newTestRepository(t)
	dir := t.TempDir()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a := New(Config{RepositoryDir: repo.Root(), AnalyticsDir: dir, Expiry: time.Hour})
	a.now = func() time.Time { return now }

	ran, err := a.RunIfExpired()
	require.NoError(t, err)
	assert.True(t, ran)

	now = now.Add(30 * time.Minute)
	ran, err = a.RunIfExpired()
	require.NoError(t, err)
	assert.False(t, ran)

	now = now.Add(31 * time.Minute)
	ran, err = a.RunIfExpired()
	require.NoError(t, err)
	assert.True(t, ran)

	require.NoError(t, a.Invalidate())
	require.NoError(t, a.Invalidate())
	assert.True(t, a.Expired())
	ran, err = a.RunIfExpired()
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestHistogramRoundTrip(t *testing.T) {
	dir := t.TempDir()
	constants := NewHistogramInstructionConstant()
	constants.Add(vm.ADD, 1, 10)
	constants.Add(vm.ADD, -1, 3)
	constants.Add(vm.ADD, 1, 2)
	constants.Add(vm.POW, 2, 7)
	require.NoError(t, constants.Save(filepath.Join(dir, FileHistogramInstructionConstant)))

	loaded, err := LoadHistogramInstructionConstant(filepath.Join(dir, FileHistogramInstructionConstant))
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
	assert.Equal(t, constants.rows(), loaded.rows())

	data, err := os.ReadFile(filepath.Join(dir, FileHistogramInstructionConstant))
	require.NoError(t, err)
	assert.Equal(t, "count;instruction;constant\n12;add;1\n7;pow;2\n3;add;-1\n", string(data))

	_, err = ReadHistogramInstructionBigram(strings.NewReader("count;word0;word1\n3;START;nop\n"))
	assert.ErrorIs(t, err, vm.ErrUnknownInstruction)
}

func TestLoadDenyFile(t *testing.T) {
	ids, err := LoadDenyFile(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, 0, ids.Cardinality())

	path := filepath.Join(t.TempDir(), "deny.txt")
	require.NoError(t, os.WriteFile(path, []byte("A000045 fibonacci\nnonsense\n"), 0644))
	_, err = LoadDenyFile(path)
	assert.Error(t, err)
}

func TestHistogramRegisterBigram(t *testing.T) {
	parsed, err := vm.ParseProgram("mov $1,$0\nlpb $0\n  add $1,$2\n  sub $0,1\nlpe\nmov $0,$1\n")
	require.NoError(t, err)
	assert.Equal(t, []vm.RegisterIndex{1, 0, 1, 0, 0}, TargetRegisters(parsed))
	assert.Equal(t, []vm.RegisterIndex{0, 2, 1}, SourceRegisters(parsed))

	h := NewHistogramRegisterBigram()
	h.AddSequence(TargetRegisters(parsed))
	assert.Equal(t, 4, h.Len())

	path := filepath.Join(t.TempDir(), FileHistogramTargetBigram)
	require.NoError(t, h.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "count;word0;word1\n2;$1;$0\n1;$0;$0\n1;$0;$1\n1;START;$1\n", string(data))

	loaded, err := LoadHistogramRegisterBigram(path)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	next, ok := loaded.ChooseNext(rng, RegisterStart)
	require.True(t, ok)
	assert.Equal(t, vm.RegisterIndex(1), next)
	_, ok = loaded.ChooseNext(rng, RegisterWord(7))
	assert.False(t, ok)

	_, err = ReadHistogramRegisterBigram(strings.NewReader("count;word0;word1\n3;$1;START\n"))
	assert.Error(t, err)
	_, err = ReadHistogramRegisterBigram(strings.NewReader("count;word0;word1\n3;START;x1\n"))
	assert.Error(t, err)
}

func TestRecentProgramContainer(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []ModifiedRecord
	for id := uint32(1); id <= 20; id++ {
		records = append(records, ModifiedRecord{ProgramID: id, Modified: base.Add(time.Duration(id) * time.Hour)})
	}
	path := filepath.Join(t.TempDir(), FileProgramModified)
	require.NoError(t, SaveModifiedRecords(path, records))

	recent, err := LoadRecentProgramContainer(path)
	require.NoError(t, err)
	assert.Equal(t, 20, recent.Len())
	assert.Equal(t, []uint32{20, 19}, recent.Cluster(0))
	assert.Equal(t, []uint32{2, 1}, recent.Cluster(NumberOfClusters-1))

	rng := rand.New(rand.NewSource(3))
	newest := 0
	for i := 0; i < 1000; i++ {
		id, ok := recent.ChooseWeightedByRecency(rng)
		require.True(t, ok)
		if id >= 19 {
			newest++
		}
	}
	// The newest bucket carries half of the total weight.
	assert.Greater(t, newest, 400)

	_, ok := NewRecentProgramContainer(nil).ChooseWeightedByRecency(rng)
	assert.False(t, ok)
}

// Package analytics scans the program repository and produces the statistics
// that bias mutation: program popularity and recency, instruction and register
// histograms, and the list of sequences that need no mining.
package analytics

import (
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/seqmine/seqmine/core/programs"
	"github.com/seqmine/seqmine/core/vm"
)

// Files written into the analytics directory.
const (
	FileProgramPopularity            = "program_popularity.csv"
	FileHistogramInstructionConstant = "histogram_instruction_constant.csv"
	FileHistogramInstructionBigram   = "histogram_instruction_bigram.csv"
	FileHistogramTargetBigram        = "histogram_target_bigram.csv"
	FileHistogramSourceBigram        = "histogram_source_bigram.csv"
	FileProgramModified              = "program_modified.csv"
	FileDontMine                     = "dont_mine.csv"
	FileLastAnalyticsTimestamp       = "last_analytics_timestamp.txt"
)

// Config locates the inputs and outputs of an analytics run.
type Config struct {
	RepositoryDir string        // Root of the program repository
	AnalyticsDir  string        // Where the CSV files are written
	DenyFile      string        // Optional list of sequences never to mine
	Expiry        time.Duration // Age after which RunIfExpired regenerates
	MaxRegisters  int
}

// Analytics regenerates the analytics files.
type Analytics struct {
	config Config
	repo   *programs.Repository
	now    func() time.Time
}

func New(config Config) *Analytics {
	return &Analytics{
		config: config,
		repo:   programs.NewRepository(config.RepositoryDir),
		now:    time.Now,
	}
}

func (a *Analytics) path(name string) string {
	return filepath.Join(a.config.AnalyticsDir, name)
}

// LastRun returns the time of the last successful run, if any.
func (a *Analytics) LastRun() (time.Time, bool) {
	data, err := os.ReadFile(a.path(FileLastAnalyticsTimestamp))
	if err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Expired reports whether the analytics files are missing or older than the
// configured expiry.
func (a *Analytics) Expired() bool {
	last, ok := a.LastRun()
	if !ok {
		return true
	}
	return a.now().Sub(last) >= a.config.Expiry
}

// Invalidate removes the timestamp so that the next RunIfExpired regenerates.
func (a *Analytics) Invalidate() error {
	err := os.Remove(a.path(FileLastAnalyticsTimestamp))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RunIfExpired regenerates only when Expired. It reports whether it did.
func (a *Analytics) RunIfExpired() (bool, error) {
	if !a.Expired() {
		log.Debug("Analytics are up to date, skipping")
		return false, nil
	}
	return true, a.RunForce()
}

// RunForce regenerates all analytics files.
func (a *Analytics) RunForce() error {
	start := time.Now()
	if err := os.MkdirAll(a.config.AnalyticsDir, 0755); err != nil {
		return err
	}
	ids, err := a.repo.ProgramIDs()
	if err != nil {
		return err
	}
	deny, err := LoadDenyFile(a.config.DenyFile)
	if err != nil {
		return errors.Wrap(err, "deny file")
	}
	var (
		loader     = programs.NewDependencyLoader(a.repo, a.config.MaxRegisters, len(ids)+1)
		dependents = make(map[uint32]int)
		valid      []uint32
		constants  = NewHistogramInstructionConstant()
		bigrams    = NewHistogramInstructionBigram()
		targets    = NewHistogramRegisterBigram()
		sources    = NewHistogramRegisterBigram()
		modified   []ModifiedRecord
	)
	for _, id := range ids {
		parsed, err := loader.LoadParsed(id)
		if err == nil {
			_, err = loader.LoadProgram(id)
		}
		if err != nil {
			log.Debug("Skipping invalid program", "id", id, "err", err)
			continue
		}
		valid = append(valid, id)
		if mtime, err := a.repo.ModTime(id); err == nil {
			modified = append(modified, ModifiedRecord{ProgramID: id, Modified: mtime})
		}
		seen := make(map[uint32]struct{})
		for _, dep := range parsed.DirectDependencies() {
			if _, ok := seen[dep]; !ok && dep != id {
				seen[dep] = struct{}{}
				dependents[dep]++
			}
		}
		bigrams.AddProgram(parsed)
		targets.AddSequence(TargetRegisters(parsed))
		sources.AddSequence(SourceRegisters(parsed))
		for _, instruction := range parsed.Instructions {
			if instruction.ID.IsArithmetic() && len(instruction.Parameters) == 2 && instruction.Parameters[1].Type == vm.ParameterConstant {
				constants.Add(instruction.ID, instruction.Parameters[1].Value, 1)
			}
		}
	}

	rows := make([][]string, len(valid))
	for i, id := range valid {
		rows[i] = []string{strconv.FormatUint(uint64(id), 10), strconv.Itoa(int(PopularityCluster(dependents[id])))}
	}
	if err := writeCSV(a.path(FileProgramPopularity), []string{"program id", "popularity"}, rows); err != nil {
		return err
	}
	if err := constants.Save(a.path(FileHistogramInstructionConstant)); err != nil {
		return err
	}
	if err := bigrams.Save(a.path(FileHistogramInstructionBigram)); err != nil {
		return err
	}
	if err := targets.Save(a.path(FileHistogramTargetBigram)); err != nil {
		return err
	}
	if err := sources.Save(a.path(FileHistogramSourceBigram)); err != nil {
		return err
	}
	if err := SaveModifiedRecords(a.path(FileProgramModified), modified); err != nil {
		return err
	}
	dontMine := mapset.NewThreadUnsafeSet[uint32](ids...)
	dontMine = dontMine.Union(deny)
	if err := SaveProgramIDsCSV(a.path(FileDontMine), dontMine); err != nil {
		return err
	}
	if err := os.WriteFile(a.path(FileLastAnalyticsTimestamp), []byte(a.now().UTC().Format(time.RFC3339)+"\n"), 0644); err != nil {
		return err
	}

	analyticsTimer.UpdateSince(start)
	analyticsProgramsGauge.Update(int64(len(valid)))
	analyticsInvalidGauge.Update(int64(len(ids) - len(valid)))
	log.Info("Regenerated analytics", "programs", len(ids), "valid", len(valid), "constants", constants.Len(),
		"bigrams", bigrams.Len(), "registers", targets.Len()+sources.Len(), "dontmine", dontMine.Cardinality(), "elapsed", time.Since(start))
	return nil
}

// PopularityCluster maps the number of programs depending on a program to a
// bucket: 0 when nobody depends on it, otherwise 1 + floor(log2(n)) capped
// at 9.
func PopularityCluster(dependents int) uint8 {
	if dependents <= 0 {
		return 0
	}
	cluster := bits.Len(uint(dependents))
	if cluster > NumberOfClusters-1 {
		cluster = NumberOfClusters - 1
	}
	return uint8(cluster)
}

// Snapshot is the loaded content of an analytics directory.
type Snapshot struct {
	Popular   *PopularProgramContainer
	Recent    *RecentProgramContainer
	Constants *HistogramInstructionConstant
	Bigrams   *HistogramInstructionBigram
	Targets   *HistogramRegisterBigram
	Sources   *HistogramRegisterBigram
	DontMine  mapset.Set[uint32]
}

// Load reads every analytics file from dir.
func Load(dir string) (*Snapshot, error) {
	popular, err := LoadPopularProgramContainer(filepath.Join(dir, FileProgramPopularity))
	if err != nil {
		return nil, err
	}
	constants, err := LoadHistogramInstructionConstant(filepath.Join(dir, FileHistogramInstructionConstant))
	if err != nil {
		return nil, err
	}
	bigrams, err := LoadHistogramInstructionBigram(filepath.Join(dir, FileHistogramInstructionBigram))
	if err != nil {
		return nil, err
	}
	targets, err := LoadHistogramRegisterBigram(filepath.Join(dir, FileHistogramTargetBigram))
	if err != nil {
		return nil, err
	}
	sources, err := LoadHistogramRegisterBigram(filepath.Join(dir, FileHistogramSourceBigram))
	if err != nil {
		return nil, err
	}
	recent, err := LoadRecentProgramContainer(filepath.Join(dir, FileProgramModified))
	if err != nil {
		return nil, err
	}
	dontMine, err := LoadProgramIDsCSV(filepath.Join(dir, FileDontMine))
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Popular:   popular,
		Recent:    recent,
		Constants: constants,
		Bigrams:   bigrams,
		Targets:   targets,
		Sources:   sources,
		DontMine:  dontMine,
	}, nil
}

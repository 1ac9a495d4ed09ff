package analytics

import (
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var modifiedHeader = []string{"program id", "modified"}

// ModifiedRecord is one row of program_modified.csv.
type ModifiedRecord struct {
	ProgramID uint32
	Modified  time.Time
}

// RecentProgramContainer groups program ids by how recently they were
// modified. Cluster 0 holds the newest tenth of the programs.
type RecentProgramContainer struct {
	clusters [NumberOfClusters][]uint32
}

func NewRecentProgramContainer(records []ModifiedRecord) *RecentProgramContainer {
	sorted := make([]ModifiedRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Modified.Equal(sorted[j].Modified) {
			return sorted[i].Modified.After(sorted[j].Modified)
		}
		return sorted[i].ProgramID < sorted[j].ProgramID
	})
	c := new(RecentProgramContainer)
	for i, record := range sorted {
		cluster := i * NumberOfClusters / len(sorted)
		c.clusters[cluster] = append(c.clusters[cluster], record.ProgramID)
	}
	return c
}

// Cluster returns the ids in one bucket, newest first. The slice must not be
// modified.
func (c *RecentProgramContainer) Cluster(id int) []uint32 {
	if id < 0 || id >= NumberOfClusters {
		return nil
	}
	return c.clusters[id]
}

func (c *RecentProgramContainer) Len() int {
	n := 0
	for _, cluster := range c.clusters {
		n += len(cluster)
	}
	return n
}

// ChooseWeightedByRecency picks a bucket with weights 512,256,...,1 from the
// newest to the oldest and then a uniform program in it.
func (c *RecentProgramContainer) ChooseWeightedByRecency(rng *rand.Rand) (uint32, bool) {
	cluster := NumberOfClusters - 1 - ChooseWeighted(rng, clusterWeights[:])
	ids := c.clusters[cluster]
	if len(ids) == 0 {
		return 0, false
	}
	return ids[rng.Intn(len(ids))], true
}

// SaveModifiedRecords writes records as program_modified.csv, the time in
// unix seconds.
func SaveModifiedRecords(path string, records []ModifiedRecord) error {
	rows := make([][]string, len(records))
	for i, record := range records {
		rows[i] = []string{strconv.FormatUint(uint64(record.ProgramID), 10), strconv.FormatInt(record.Modified.Unix(), 10)}
	}
	return writeCSV(path, modifiedHeader, rows)
}

func LoadRecentProgramContainer(path string) (*RecentProgramContainer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	container, err := ReadRecentProgramContainer(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return container, nil
}

func ReadRecentProgramContainer(r io.Reader) (*RecentProgramContainer, error) {
	var records []ModifiedRecord
	err := readCSV(r, modifiedHeader, func(line int, fields []string) error {
		id, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
		if err != nil {
			return errors.Wrapf(err, "line %d: program id", line)
		}
		unix, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: modified", line)
		}
		records = append(records, ModifiedRecord{ProgramID: uint32(id), Modified: time.Unix(unix, 0)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewRecentProgramContainer(records), nil
}

package analytics

import (
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NumberOfClusters is the number of popularity buckets. Bucket 0 holds the
// programs nobody depends on, bucket 9 the most depended upon.
const NumberOfClusters = 10

// ErrPopularityClusterIdOutOfBounds is returned when a popularity record names
// a cluster outside 0..9.
var ErrPopularityClusterIdOutOfBounds = errors.New("popularity cluster id out of bounds")

// clusterWeights makes bucket k twice as likely as bucket k-1.
var clusterWeights = [NumberOfClusters]uint64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512}

// PopularProgramContainer groups program ids by popularity for weighted
// sampling. It is read-only once loaded.
type PopularProgramContainer struct {
	clusters [NumberOfClusters][]uint32
}

// NewPopularProgramContainer builds a container from id → cluster records.
func NewPopularProgramContainer(records []PopularityRecord) (*PopularProgramContainer, error) {
	c := new(PopularProgramContainer)
	for _, record := range records {
		if record.Cluster >= NumberOfClusters {
			return nil, errors.Wrapf(ErrPopularityClusterIdOutOfBounds, "program %d has cluster %d", record.ProgramID, record.Cluster)
		}
		c.clusters[record.Cluster] = append(c.clusters[record.Cluster], record.ProgramID)
	}
	return c, nil
}

// PopularityRecord is one row of program_popularity.csv.
type PopularityRecord struct {
	ProgramID uint32
	Cluster   uint8
}

// LoadPopularProgramContainer reads a ';' delimited file with the header
// "program id;popularity".
func LoadPopularProgramContainer(path string) (*PopularProgramContainer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	container, err := ReadPopularProgramContainer(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return container, nil
}

// ReadPopularProgramContainer parses popularity records from r.
func ReadPopularProgramContainer(r io.Reader) (*PopularProgramContainer, error) {
	var records []PopularityRecord
	err := readCSV(r, []string{"program id", "popularity"}, func(line int, fields []string) error {
		id, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
		if err != nil {
			return errors.Wrapf(err, "line %d: program id", line)
		}
		cluster, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 8)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return errors.Wrapf(ErrPopularityClusterIdOutOfBounds, "line %d", line)
			}
			return errors.Wrapf(err, "line %d: popularity", line)
		}
		records = append(records, PopularityRecord{ProgramID: uint32(id), Cluster: uint8(cluster)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewPopularProgramContainer(records)
}

// Cluster returns the ids in one bucket. The slice must not be modified.
func (c *PopularProgramContainer) Cluster(id int) []uint32 {
	if id < 0 || id >= NumberOfClusters {
		return nil
	}
	return c.clusters[id]
}

// Len returns the total number of programs.
func (c *PopularProgramContainer) Len() int {
	n := 0
	for _, cluster := range c.clusters {
		n += len(cluster)
	}
	return n
}

// ChooseWeightedByPopularity picks a bucket with weights 1,2,4,...,512 and
// then a uniform program in it. An empty bucket yields false.
func (c *PopularProgramContainer) ChooseWeightedByPopularity(rng *rand.Rand) (uint32, bool) {
	return c.chooseFromCluster(rng, ChooseWeighted(rng, clusterWeights[:]))
}

// ChooseMostPopular picks from bucket 9.
func (c *PopularProgramContainer) ChooseMostPopular(rng *rand.Rand) (uint32, bool) {
	return c.chooseFromCluster(rng, NumberOfClusters-1)
}

// ChooseMediumPopular picks from a uniformly chosen bucket in 1..7.
func (c *PopularProgramContainer) ChooseMediumPopular(rng *rand.Rand) (uint32, bool) {
	return c.chooseFromCluster(rng, 1+rng.Intn(7))
}

// ChooseLeastPopular picks from bucket 0.
func (c *PopularProgramContainer) ChooseLeastPopular(rng *rand.Rand) (uint32, bool) {
	return c.chooseFromCluster(rng, 0)
}

func (c *PopularProgramContainer) chooseFromCluster(rng *rand.Rand, id int) (uint32, bool) {
	if id < 0 || id >= NumberOfClusters {
		return 0, false
	}
	ids := c.clusters[id]
	if len(ids) == 0 {
		return 0, false
	}
	return ids[rng.Intn(len(ids))], true
}

// ChooseWeighted returns an index drawn with probability proportional to its
// weight, or -1 when all weights are zero.
func ChooseWeighted(rng *rand.Rand, weights []uint64) int {
	var total uint64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return -1
	}
	pick := uint64(rng.Int63n(int64(total)))
	for i, w := range weights {
		if pick < w {
			return i
		}
		pick -= w
	}
	return len(weights) - 1
}

// readCSV reads a ';' delimited file, checks the header and calls fn for
// every record with its 1-based line number. Blank lines are skipped.
func readCSV(r io.Reader, header []string, fn func(line int, fields []string) error) error {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = len(header)
	reader.ReuseRecord = true

	first, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	for i, name := range header {
		if strings.TrimSpace(first[i]) != name {
			return errors.Errorf("unexpected csv header %q, want %q", strings.Join(first, ";"), strings.Join(header, ";"))
		}
	}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, fields); err != nil {
			return err
		}
	}
}

// writeCSV writes rows with the given header to path, replacing it atomically.
func writeCSV(path string, header []string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

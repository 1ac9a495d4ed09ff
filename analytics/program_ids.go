package analytics

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/seqmine/seqmine/oeis"
)

var programIDHeader = []string{"program id"}

// LoadProgramIDsCSV reads a single column file with the header "program id",
// such as dont_mine.csv.
func LoadProgramIDsCSV(path string) (mapset.Set[uint32], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ids := mapset.NewThreadUnsafeSet[uint32]()
	err = readCSV(f, programIDHeader, func(line int, fields []string) error {
		id, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		ids.Add(uint32(id))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return ids, nil
}

// SaveProgramIDsCSV writes ids sorted ascending.
func SaveProgramIDsCSV(path string, ids mapset.Set[uint32]) error {
	sorted := ids.ToSlice()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rows := make([][]string, len(sorted))
	for i, id := range sorted {
		rows[i] = []string{strconv.FormatUint(uint64(id), 10)}
	}
	return writeCSV(path, programIDHeader, rows)
}

// LoadDenyFile reads the ids of sequences that must never be mined. Each
// non-comment line starts with an A-number, optionally followed by ':' and a
// reason, e.g. "A000045: too well known". A missing file is an empty list.
func LoadDenyFile(path string) (mapset.Set[uint32], error) {
	ids := mapset.NewThreadUnsafeSet[uint32]()
	if path == "" {
		return ids, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, _, _ := strings.Cut(text, ":")
		name, _, _ = strings.Cut(strings.TrimSpace(name), " ")
		id, err := oeis.ParseOeisID(name)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", path, line)
		}
		ids.Add(uint32(id))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

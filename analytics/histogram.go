package analytics

import (
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/seqmine/seqmine/core/vm"
)

// StartWord marks the beginning of a program in the bigram histogram.
const StartWord = "START"

var (
	constantHeader = []string{"count", "instruction", "constant"}
	bigramHeader   = []string{"count", "word0", "word1"}
)

type weightedConstants struct {
	values  []int64
	weights []uint64
}

// HistogramInstructionConstant counts how often each constant is used as the
// source of each instruction across the repository.
type HistogramInstructionConstant struct {
	entries map[vm.InstructionID]*weightedConstants
}

func NewHistogramInstructionConstant() *HistogramInstructionConstant {
	return &HistogramInstructionConstant{entries: make(map[vm.InstructionID]*weightedConstants)}
}

// Add records count more uses of constant with instruction.
func (h *HistogramInstructionConstant) Add(instruction vm.InstructionID, constant int64, count uint64) {
	entry, ok := h.entries[instruction]
	if !ok {
		entry = new(weightedConstants)
		h.entries[instruction] = entry
	}
	for i, v := range entry.values {
		if v == constant {
			entry.weights[i] += count
			return
		}
	}
	entry.values = append(entry.values, constant)
	entry.weights = append(entry.weights, count)
}

// ChooseConstant picks a constant for instruction weighted by usage.
func (h *HistogramInstructionConstant) ChooseConstant(rng *rand.Rand, instruction vm.InstructionID) (int64, bool) {
	entry, ok := h.entries[instruction]
	if !ok {
		return 0, false
	}
	i := ChooseWeighted(rng, entry.weights)
	if i < 0 {
		return 0, false
	}
	return entry.values[i], true
}

// Len returns the number of distinct (instruction, constant) pairs.
func (h *HistogramInstructionConstant) Len() int {
	n := 0
	for _, entry := range h.entries {
		n += len(entry.values)
	}
	return n
}

func (h *HistogramInstructionConstant) rows() [][]string {
	var rows [][]string
	for instruction, entry := range h.entries {
		for i, v := range entry.values {
			rows = append(rows, []string{
				strconv.FormatUint(entry.weights[i], 10),
				instruction.String(),
				strconv.FormatInt(v, 10),
			})
		}
	}
	sortRows(rows)
	return rows
}

// Save writes the histogram as histogram_instruction_constant.csv.
func (h *HistogramInstructionConstant) Save(path string) error {
	return writeCSV(path, constantHeader, h.rows())
}

// LoadHistogramInstructionConstant reads a file written by Save.
func LoadHistogramInstructionConstant(path string) (*HistogramInstructionConstant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := ReadHistogramInstructionConstant(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return h, nil
}

func ReadHistogramInstructionConstant(r io.Reader) (*HistogramInstructionConstant, error) {
	h := NewHistogramInstructionConstant()
	err := readCSV(r, constantHeader, func(line int, fields []string) error {
		count, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: count", line)
		}
		instruction, ok := vm.InstructionIDFromString(strings.TrimSpace(fields[1]))
		if !ok {
			return errors.Wrapf(vm.ErrUnknownInstruction, "line %d: %q", line, fields[1])
		}
		constant, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: constant", line)
		}
		h.Add(instruction, constant, count)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

type weightedInstructions struct {
	values  []vm.InstructionID
	weights []uint64
}

// HistogramInstructionBigram counts which instruction follows which. The zero
// InstructionID stands for the start of a program.
type HistogramInstructionBigram struct {
	entries map[vm.InstructionID]*weightedInstructions
}

func NewHistogramInstructionBigram() *HistogramInstructionBigram {
	return &HistogramInstructionBigram{entries: make(map[vm.InstructionID]*weightedInstructions)}
}

// Add records count more occurrences of next directly after prev.
func (h *HistogramInstructionBigram) Add(prev, next vm.InstructionID, count uint64) {
	entry, ok := h.entries[prev]
	if !ok {
		entry = new(weightedInstructions)
		h.entries[prev] = entry
	}
	for i, v := range entry.values {
		if v == next {
			entry.weights[i] += count
			return
		}
	}
	entry.values = append(entry.values, next)
	entry.weights = append(entry.weights, count)
}

// AddProgram records every bigram of a parsed program.
func (h *HistogramInstructionBigram) AddProgram(program *vm.ParsedProgram) {
	prev := vm.InstructionID(0)
	for _, instruction := range program.Instructions {
		h.Add(prev, instruction.ID, 1)
		prev = instruction.ID
	}
}

// ChooseNext picks an instruction likely to follow prev. Pass 0 as prev for
// the first instruction of a program.
func (h *HistogramInstructionBigram) ChooseNext(rng *rand.Rand, prev vm.InstructionID) (vm.InstructionID, bool) {
	entry, ok := h.entries[prev]
	if !ok {
		return 0, false
	}
	i := ChooseWeighted(rng, entry.weights)
	if i < 0 {
		return 0, false
	}
	return entry.values[i], true
}

// Len returns the number of distinct bigrams.
func (h *HistogramInstructionBigram) Len() int {
	n := 0
	for _, entry := range h.entries {
		n += len(entry.values)
	}
	return n
}

func bigramWord(id vm.InstructionID) string {
	if id == 0 {
		return StartWord
	}
	return id.String()
}

func (h *HistogramInstructionBigram) Save(path string) error {
	var rows [][]string
	for prev, entry := range h.entries {
		for i, next := range entry.values {
			rows = append(rows, []string{strconv.FormatUint(entry.weights[i], 10), bigramWord(prev), bigramWord(next)})
		}
	}
	sortRows(rows)
	return writeCSV(path, bigramHeader, rows)
}

func LoadHistogramInstructionBigram(path string) (*HistogramInstructionBigram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := ReadHistogramInstructionBigram(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return h, nil
}

func ReadHistogramInstructionBigram(r io.Reader) (*HistogramInstructionBigram, error) {
	h := NewHistogramInstructionBigram()
	parseWord := func(line int, word string) (vm.InstructionID, error) {
		word = strings.TrimSpace(word)
		if word == StartWord {
			return 0, nil
		}
		id, ok := vm.InstructionIDFromString(word)
		if !ok {
			return 0, errors.Wrapf(vm.ErrUnknownInstruction, "line %d: %q", line, word)
		}
		return id, nil
	}
	err := readCSV(r, bigramHeader, func(line int, fields []string) error {
		count, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: count", line)
		}
		prev, err := parseWord(line, fields[1])
		if err != nil {
			return err
		}
		next, err := parseWord(line, fields[2])
		if err != nil {
			return err
		}
		h.Add(prev, next, count)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// sortRows orders rows by descending count, then lexically, so that the
// written files are stable.
func sortRows(rows [][]string) {
	sort.Slice(rows, func(i, j int) bool {
		ci, _ := strconv.ParseUint(rows[i][0], 10, 64)
		cj, _ := strconv.ParseUint(rows[j][0], 10, 64)
		if ci != cj {
			return ci > cj
		}
		return strings.Join(rows[i][1:], ";") < strings.Join(rows[j][1:], ";")
	})
}

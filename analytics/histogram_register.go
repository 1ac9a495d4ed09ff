package analytics

import (
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/seqmine/seqmine/core/vm"
)

// RegisterWord is a register index or RegisterStart.
type RegisterWord int64

// RegisterStart stands for the beginning of a program.
const RegisterStart RegisterWord = -1

func (w RegisterWord) String() string {
	if w == RegisterStart {
		return StartWord
	}
	return vm.RegisterIndex(w).String()
}

func parseRegisterWord(word string) (RegisterWord, error) {
	word = strings.TrimSpace(word)
	if word == StartWord {
		return RegisterStart, nil
	}
	if !strings.HasPrefix(word, "$") {
		return 0, errors.Errorf("invalid register %q", word)
	}
	index, err := strconv.ParseUint(word[1:], 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "register %q", word)
	}
	return RegisterWord(index), nil
}

type weightedRegisters struct {
	values  []vm.RegisterIndex
	weights []uint64
}

// HistogramRegisterBigram counts which register follows which, for either the
// target or the source operands of a program.
type HistogramRegisterBigram struct {
	entries map[RegisterWord]*weightedRegisters
}

func NewHistogramRegisterBigram() *HistogramRegisterBigram {
	return &HistogramRegisterBigram{entries: make(map[RegisterWord]*weightedRegisters)}
}

// Add records count more occurrences of next directly after prev.
func (h *HistogramRegisterBigram) Add(prev RegisterWord, next vm.RegisterIndex, count uint64) {
	entry, ok := h.entries[prev]
	if !ok {
		entry = new(weightedRegisters)
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

// AddSequence records every bigram of registers, starting from RegisterStart.
func (h *HistogramRegisterBigram) AddSequence(registers []vm.RegisterIndex) {
	prev := RegisterStart
	for _, r := range registers {
		h.Add(prev, r, 1)
		prev = RegisterWord(r)
	}
}

// ChooseNext picks a register likely to follow prev.
func (h *HistogramRegisterBigram) ChooseNext(rng *rand.Rand, prev RegisterWord) (vm.RegisterIndex, bool) {
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
func (h *HistogramRegisterBigram) Len() int {
	n := 0
	for _, entry := range h.entries {
		n += len(entry.values)
	}
	return n
}

func (h *HistogramRegisterBigram) Save(path string) error {
	var rows [][]string
	for prev, entry := range h.entries {
		for i, next := range entry.values {
			rows = append(rows, []string{strconv.FormatUint(entry.weights[i], 10), prev.String(), next.String()})
		}
	}
	sortRows(rows)
	return writeCSV(path, bigramHeader, rows)
}

func LoadHistogramRegisterBigram(path string) (*HistogramRegisterBigram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := ReadHistogramRegisterBigram(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return h, nil
}

func ReadHistogramRegisterBigram(r io.Reader) (*HistogramRegisterBigram, error) {
	h := NewHistogramRegisterBigram()
	err := readCSV(r, bigramHeader, func(line int, fields []string) error {
		count, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: count", line)
		}
		prev, err := parseRegisterWord(fields[1])
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		next, err := parseRegisterWord(fields[2])
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		if next == RegisterStart {
			return errors.Errorf("line %d: %s cannot follow a register", line, StartWord)
		}
		h.Add(prev, vm.RegisterIndex(next), count)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// TargetRegisters returns the registers written by each instruction in order.
// Loop ends have no register and are left out.
func TargetRegisters(program *vm.ParsedProgram) []vm.RegisterIndex {
	var out []vm.RegisterIndex
	for _, instruction := range program.Instructions {
		if len(instruction.Parameters) == 0 || instruction.Parameters[0].Type != vm.ParameterRegister {
			continue
		}
		out = append(out, vm.RegisterIndex(instruction.Parameters[0].Value))
	}
	return out
}

// SourceRegisters returns the register sources of the arithmetic
// instructions in order.
func SourceRegisters(program *vm.ParsedProgram) []vm.RegisterIndex {
	var out []vm.RegisterIndex
	for _, instruction := range program.Instructions {
		if !instruction.ID.IsArithmetic() || len(instruction.Parameters) != 2 || instruction.Parameters[1].Type != vm.ParameterRegister {
			continue
		}
		out = append(out, vm.RegisterIndex(instruction.Parameters[1].Value))
	}
	return out
}

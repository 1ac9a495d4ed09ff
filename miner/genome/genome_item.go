package genome

import (
	"fmt"

	"github.com/seqmine/seqmine/core/vm"
)

// GenomeItem is one gene: an instruction with its operands plus the flag that
// decides whether it is part of the compiled program.
type GenomeItem struct {
	Enabled     bool
	Instruction vm.InstructionID
	Target      vm.RegisterIndex
	SourceType  vm.ParameterType
	Source      int64
}

// NewGenomeItem creates an enabled gene from a parsed instruction.
func NewGenomeItem(instruction vm.ParsedInstruction) (GenomeItem, error) {
	item := GenomeItem{Enabled: true, Instruction: instruction.ID}
	switch {
	case instruction.ID == vm.LPE:
		if len(instruction.Parameters) != 0 {
			return GenomeItem{}, fmt.Errorf("%w: lpe takes no parameters", vm.ErrInvalidParameters)
		}
		return item, nil
	case instruction.ID == vm.LPB && len(instruction.Parameters) == 2:
		if p := instruction.Parameters[1]; p.Type != vm.ParameterConstant || p.Value != 1 {
			return GenomeItem{}, fmt.Errorf("%w: only unit loop ranges are supported", vm.ErrInvalidParameters)
		}
	case instruction.ID == vm.LPB && len(instruction.Parameters) == 1:
	case len(instruction.Parameters) == 2:
		item.SourceType = instruction.Parameters[1].Type
		item.Source = instruction.Parameters[1].Value
	default:
		return GenomeItem{}, fmt.Errorf("%w: %v", vm.ErrInvalidParameters, instruction)
	}
	if instruction.Parameters[0].Type != vm.ParameterRegister {
		return GenomeItem{}, fmt.Errorf("%w: %v", vm.ErrInvalidParameters, instruction)
	}
	item.Target = vm.RegisterIndex(instruction.Parameters[0].Value)
	return item, nil
}

// IsLoop reports whether the gene opens or closes a loop.
func (g GenomeItem) IsLoop() bool {
	return g.Instruction == vm.LPB || g.Instruction == vm.LPE
}

// HasConstant reports whether the gene is an arithmetic instruction with a
// constant source.
func (g GenomeItem) HasConstant() bool {
	return g.Instruction.IsArithmetic() && g.SourceType == vm.ParameterConstant
}

// HasSourceRegister reports whether the gene reads a source register.
func (g GenomeItem) HasSourceRegister() bool {
	return g.Instruction.IsArithmetic() && g.SourceType == vm.ParameterRegister
}

// Parsed converts the gene back to assembly form.
func (g GenomeItem) Parsed() vm.ParsedInstruction {
	target := vm.ParsedParameter{Type: vm.ParameterRegister, Value: int64(g.Target)}
	switch g.Instruction {
	case vm.LPE:
		return vm.ParsedInstruction{ID: g.Instruction}
	case vm.LPB:
		return vm.ParsedInstruction{ID: g.Instruction, Parameters: []vm.ParsedParameter{target}}
	default:
		source := vm.ParsedParameter{Type: g.SourceType, Value: g.Source}
		return vm.ParsedInstruction{ID: g.Instruction, Parameters: []vm.ParsedParameter{target, source}}
	}
}

func (g GenomeItem) String() string {
	s := g.Parsed().String()
	if !g.Enabled {
		return "; " + s
	}
	return s
}

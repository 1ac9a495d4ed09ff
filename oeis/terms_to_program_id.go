package oeis

import (
	"os"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/seqmine/seqmine/core/vm"
)

// MaxPrefixLength is the longest prefix the index supports, one wildcard bit
// per position.
const MaxPrefixLength = 64

const wildcardToken = "*"

// TermsToProgramIdSet maps a fixed length term prefix to the ids of the
// sequences starting with it, and keeps up to termCount reference terms per id
// for verification. Positions holding the wildcard value, or lying past the end
// of a short sequence, match any term. The set is read-only once loaded.
type TermsToProgramIdSet struct {
	prefixLength int
	termCount    int
	wildcard     vm.RegisterValue

	index      map[string][]uint32
	masks      []uint64
	maskSet    map[uint64]struct{}
	references map[uint32][]vm.RegisterValue
}

// NewTermsToProgramIdSet creates an empty index.
func NewTermsToProgramIdSet(prefixLength, termCount int, wildcard vm.RegisterValue) *TermsToProgramIdSet {
	if prefixLength > MaxPrefixLength {
		prefixLength = MaxPrefixLength
	}
	if termCount < prefixLength {
		termCount = prefixLength
	}
	return &TermsToProgramIdSet{
		prefixLength: prefixLength,
		termCount:    termCount,
		wildcard:     wildcard,
		index:        make(map[string][]uint32),
		maskSet:      make(map[uint64]struct{}),
		references:   make(map[uint32][]vm.RegisterValue),
	}
}

func (s *TermsToProgramIdSet) PrefixLength() int          { return s.prefixLength }
func (s *TermsToProgramIdSet) TermCount() int             { return s.termCount }
func (s *TermsToProgramIdSet) Wildcard() vm.RegisterValue { return s.wildcard }

// Len returns the number of indexed sequences.
func (s *TermsToProgramIdSet) Len() int { return len(s.references) }

// Masks returns the distinct wildcard masks of the stored prefixes. Bit k is
// set when position k is a wildcard.
func (s *TermsToProgramIdSet) Masks() []uint64 { return s.masks }

// Insert adds a sequence. Terms beyond termCount are dropped. Inserting the
// same id twice replaces nothing and is ignored.
func (s *TermsToProgramIdSet) Insert(id uint32, terms []vm.RegisterValue) {
	if _, ok := s.references[id]; ok {
		return
	}
	if len(terms) > s.termCount {
		terms = terms[:s.termCount]
	}
	reference := make([]vm.RegisterValue, len(terms))
	copy(reference, terms)
	s.references[id] = reference

	var mask uint64
	for i := 0; i < s.prefixLength; i++ {
		if i >= len(reference) || reference[i].Equal(s.wildcard) {
			mask |= 1 << uint(i)
		}
	}
	key := s.MaskedKey(reference, mask)
	ids := s.index[key]
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	s.index[key] = ids

	if _, ok := s.maskSet[mask]; !ok {
		s.maskSet[mask] = struct{}{}
		s.masks = append(s.masks, mask)
		sort.Slice(s.masks, func(i, j int) bool { return s.masks[i] < s.masks[j] })
	}
}

// MaskedKey renders the first prefixLength terms with the masked positions
// replaced by the wildcard token. Missing terms are treated as masked.
func (s *TermsToProgramIdSet) MaskedKey(terms []vm.RegisterValue, mask uint64) string {
	var b strings.Builder
	for i := 0; i < s.prefixLength; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		if mask&(1<<uint(i)) != 0 || i >= len(terms) {
			b.WriteString(wildcardToken)
			continue
		}
		b.WriteString(terms[i].String())
	}
	return b.String()
}

// IDsForKey returns the ids stored under a masked key, ascending. The slice
// must not be modified.
func (s *TermsToProgramIdSet) IDsForKey(key string) []uint32 {
	return s.index[key]
}

// ForEachKey calls fn for every stored masked key.
func (s *TermsToProgramIdSet) ForEachKey(fn func(key string)) {
	for key := range s.index {
		fn(key)
	}
}

// Lookup returns every id whose stored prefix is compatible with the candidate
// prefix, ascending and without duplicates.
func (s *TermsToProgramIdSet) Lookup(prefix []vm.RegisterValue) []uint32 {
	if len(prefix) < s.prefixLength {
		return nil
	}
	var found []uint32
	for _, mask := range s.masks {
		found = append(found, s.index[s.MaskedKey(prefix, mask)]...)
	}
	return SortedUnique(found)
}

// Reference returns the stored terms of id.
func (s *TermsToProgramIdSet) Reference(id uint32) ([]vm.RegisterValue, bool) {
	terms, ok := s.references[id]
	return terms, ok
}

// Matches reports whether the candidate terms agree with the reference of id
// on the first count positions. Wildcards and missing reference terms match
// anything; missing candidate terms never match.
func (s *TermsToProgramIdSet) Matches(id uint32, terms []vm.RegisterValue, count int) bool {
	reference, ok := s.references[id]
	if !ok || len(terms) < count {
		return false
	}
	for i := 0; i < count; i++ {
		if i >= len(reference) || reference[i].Equal(s.wildcard) {
			continue
		}
		if !reference[i].Equal(terms[i]) {
			return false
		}
	}
	return true
}

// SortedUnique sorts ids ascending and removes duplicates in place.
func SortedUnique(ids []uint32) []uint32 {
	if len(ids) < 2 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// LoadConfig controls which stripped records end up in the index.
type LoadConfig struct {
	PrefixLength int              // Length of the indexed prefix
	TermCount    int              // Number of reference terms kept for verification
	MinimumTerms int              // Records with fewer known terms are skipped
	Wildcard     vm.RegisterValue // Term value matching anything
	Deny         mapset.Set[uint32]
}

// LoadTermsToProgramIdSet builds the index from a stripped file.
func LoadTermsToProgramIdSet(path string, config LoadConfig) (*TermsToProgramIdSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open stripped file")
	}
	defer f.Close()

	var (
		set     = NewTermsToProgramIdSet(config.PrefixLength, config.TermCount, config.Wildcard)
		skipped int
	)
	err = ForEachStrippedSequence(f, set.termCount, func(seq StrippedSequence) error {
		if config.Deny != nil && config.Deny.Contains(uint32(seq.ID)) {
			skipped++
			return nil
		}
		if len(seq.Terms) < config.MinimumTerms {
			skipped++
			return nil
		}
		set.Insert(uint32(seq.ID), seq.Terms)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	log.Info("Loaded terms to program id set", "sequences", set.Len(), "skipped", skipped, "masks", len(set.masks))
	return set, nil
}

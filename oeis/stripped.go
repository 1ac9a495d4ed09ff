package oeis

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/seqmine/seqmine/core/vm"
)

// ErrMalformedStrippedLine is returned for lines that are not of the form
// "A000045 ,0,1,1,2,".
var ErrMalformedStrippedLine = errors.New("malformed stripped line")

// StrippedSequence is one record of the OEIS stripped file.
type StrippedSequence struct {
	ID    OeisID
	Terms []vm.RegisterValue
}

// ParseStrippedLine parses one record, keeping at most maxTerms terms. A
// non-positive maxTerms keeps all of them.
func ParseStrippedLine(line string, maxTerms int) (StrippedSequence, error) {
	name, rest, ok := strings.Cut(line, " ")
	if !ok {
		return StrippedSequence{}, ErrMalformedStrippedLine
	}
	id, err := ParseOeisID(name)
	if err != nil {
		return StrippedSequence{}, err
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ",") {
		return StrippedSequence{}, ErrMalformedStrippedLine
	}
	seq := StrippedSequence{ID: id}
	for _, field := range strings.Split(strings.Trim(rest, ","), ",") {
		if field == "" {
			continue
		}
		if maxTerms > 0 && len(seq.Terms) >= maxTerms {
			break
		}
		term, err := vm.ParseRegisterValue(field)
		if err != nil {
			return StrippedSequence{}, errors.Wrap(ErrMalformedStrippedLine, err.Error())
		}
		seq.Terms = append(seq.Terms, term)
	}
	return seq, nil
}

// ForEachStrippedSequence calls fn for every record in r. Comment lines start
// with '#'. Parse failures carry the line number.
func ForEachStrippedSequence(r io.Reader, maxTerms int, fn func(StrippedSequence) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		seq, err := ParseStrippedLine(text, maxTerms)
		if err != nil {
			return errors.Wrapf(err, "stripped line %d", line)
		}
		if err := fn(seq); err != nil {
			return err
		}
	}
	return scanner.Err()
}

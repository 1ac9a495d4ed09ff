// Package oeis reads the OEIS reference corpus and builds the prefix index the
// funnel matches candidates against.
package oeis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidOeisID is returned for identifiers not of the form A000045.
var ErrInvalidOeisID = errors.New("invalid oeis id")

// OeisID is the numeric part of an A-number.
type OeisID uint32

func (id OeisID) String() string {
	return fmt.Sprintf("A%06d", uint32(id))
}

// ParseOeisID parses "A000045" as well as a bare "45".
func ParseOeisID(s string) (OeisID, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(s, "A")
	if digits == "" {
		return 0, errors.Wrap(ErrInvalidOeisID, s)
	}
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidOeisID, s)
	}
	return OeisID(v), nil
}

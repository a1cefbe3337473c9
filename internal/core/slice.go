package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Slice selects a 1-based, inclusive range of items. Zero on either side means open.
type Slice struct {
	Begin int
	End   int
}

// ParseSlice parses "begin:end". Either side may be empty or "0"; a single value n means n:n.
func ParseSlice(s string) (Slice, error) {
	s = strings.TrimSpace(s)

	begin, end, found := strings.Cut(s, ":")
	if !found {
		end = begin
	}

	b, err := parseSliceBound(begin)
	if err != nil {
		return Slice{}, fmt.Errorf("%w %q: %v", ErrInvalidSlice, s, err)
	}
	e, err := parseSliceBound(end)
	if err != nil {
		return Slice{}, fmt.Errorf("%w %q: %v", ErrInvalidSlice, s, err)
	}

	if b > 0 && e > 0 && e < b {
		return Slice{}, fmt.Errorf("%w %q: end before begin", ErrInvalidSlice, s)
	}

	return Slice{Begin: b, End: e}, nil
}

func parseSliceBound(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative index %d", n)
	}
	return n, nil
}

// Apply returns the selected sub-sequence. Item indexes are left untouched.
func (s Slice) Apply(items []Item) []Item {
	lo := 0
	if s.Begin > 0 {
		lo = s.Begin - 1
	}
	hi := len(items)
	if s.End > 0 && s.End < hi {
		hi = s.End
	}
	if lo >= hi {
		return []Item{}
	}
	return items[lo:hi]
}

func (s Slice) String() string {
	b, e := "", ""
	if s.Begin > 0 {
		b = strconv.Itoa(s.Begin)
	}
	if s.End > 0 {
		e = strconv.Itoa(s.End)
	}
	return b + ":" + e
}

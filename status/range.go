package status

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

// ParseRange expands a comma separated list of codes and inclusive spans such
// as "200,201,500-504". Segments that do not describe valid status codes are
// skipped; the result keeps segment order and duplicates and may be empty.
func ParseRange(spec string) []int {
	var codes []int
	for _, segment := range strings.Split(spec, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if startRaw, endRaw, ok := strings.Cut(segment, "-"); ok {
			start, errStart := strconv.Atoi(strings.TrimSpace(startRaw))
			end, errEnd := strconv.Atoi(strings.TrimSpace(endRaw))
			if errStart != nil || errEnd != nil || start > end || !validCode(start) || !validCode(end) {
				continue
			}
			for code := start; code <= end; code++ {
				codes = append(codes, code)
			}
			continue
		}
		if code, ok := parseInRange(segment, MinCode, MaxCode); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// Selector chooses one code from a non-empty candidate list.
type Selector interface {
	Select(codes []int) int
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func([]int) int

func (f SelectorFunc) Select(codes []int) int { return f(codes) }

// UniformSelector picks an index uniformly at random.
var UniformSelector Selector = SelectorFunc(func(codes []int) int {
	return codes[rand.IntN(len(codes))]
})

// Pick selects a code with sel, or the uniform selector when sel is nil.
func Pick(sel Selector, codes []int) (int, error) {
	if len(codes) == 0 {
		return 0, ErrInvalidRange
	}
	if sel == nil {
		sel = UniformSelector
	}
	return sel.Select(codes), nil
}

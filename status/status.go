package status

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidStatusCode     = errors.New("status: invalid status code")
	ErrInvalidRange          = errors.New("status: no valid status codes in range")
	ErrInvalidRedirectCode   = errors.New("status: invalid redirect code")
	ErrMissingRedirectTarget = errors.New("status: missing redirect target")
)

const (
	MinCode         = 100
	MaxCode         = 599
	MinRedirectCode = 300
	MaxRedirectCode = 308
)

// IsValidStatusCode reports whether value is an integer in [100, 599].
func IsValidStatusCode(value string) bool {
	_, ok := parseInRange(value, MinCode, MaxCode)
	return ok
}

// IsValidRedirectCode reports whether value is an integer in [300, 308].
func IsValidRedirectCode(value string) bool {
	_, ok := parseInRange(value, MinRedirectCode, MaxRedirectCode)
	return ok
}

// ParseStatusCode converts value into a status code or returns ErrInvalidStatusCode.
func ParseStatusCode(value string) (int, error) {
	code, ok := parseInRange(value, MinCode, MaxCode)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatusCode, value)
	}
	return code, nil
}

// ParseRedirectCode converts value into a redirect code or returns ErrInvalidRedirectCode.
func ParseRedirectCode(value string) (int, error) {
	code, ok := parseInRange(value, MinRedirectCode, MaxRedirectCode)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRedirectCode, value)
	}
	return code, nil
}

func parseInRange(value string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	if n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func validCode(n int) bool { return n >= MinCode && n <= MaxCode }

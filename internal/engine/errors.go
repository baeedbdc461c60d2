package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPartialApply is matched by every *PartialApplyError.
var ErrPartialApply = errors.New("partial apply failure")

// PartialApplyError names the paths a write batch failed to set. The other
// paths of the batch were written.
type PartialApplyError struct {
	Paths   []string
	Results map[string]int
}

func (e *PartialApplyError) Error() string {
	parts := make([]string, len(e.Paths))
	for i, p := range e.Paths {
		code, ok := e.Results[p]
		res := "missing"
		if ok {
			res = strconv.Itoa(code)
		}
		parts[i] = fmt.Sprintf("%s (result=%s)", p, res)
	}
	return fmt.Sprintf("apply failed for %d path(s): %s", len(e.Paths), strings.Join(parts, ", "))
}

// Is makes errors.Is(err, ErrPartialApply) hold.
func (e *PartialApplyError) Is(target error) bool { return target == ErrPartialApply }

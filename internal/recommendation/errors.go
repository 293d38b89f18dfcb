// internal/recommendation/errors.go
package recommendation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingArea matches any *MissingAreaError through errors.Is.
var ErrMissingArea = errors.New("MISSING_AREA")

// MissingAreaError is returned when a score record lacks required areas.
type MissingAreaError struct {
	Areas []Area
}

func (e *MissingAreaError) Error() string {
	names := make([]string, len(e.Areas))
	for i, a := range e.Areas {
		names[i] = string(a)
	}
	return fmt.Sprintf("missing area score: %s", strings.Join(names, ", "))
}

func (e *MissingAreaError) Is(target error) bool {
	return target == ErrMissingArea
}

package portalloc

import "fmt"

// ExhaustedRangeError reports that the configured range has fewer free
// ports than the allocation request needs. Callers treat it as terminal:
// the shortage will not resolve without operator action.
type ExhaustedRangeError struct {
	Requested int
	Free      int
}

func (e *ExhaustedRangeError) Error() string {
	return fmt.Sprintf("not enough free ports: need %d, only %d available", e.Requested, e.Free)
}

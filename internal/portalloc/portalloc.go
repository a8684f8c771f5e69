package portalloc

import (
	"devbay/internal/utils"
)

// randomAttempts bounds the probing phase before falling back to a full
// scan of the remaining free ports. Keeps the common case cheap while a
// mostly-empty range is in use.
const randomAttempts = 100

func NewPortAllocator(start, end int) *PortAllocator {
	return &PortAllocator{
		rangeStart: start,
		rangeEnd:   end,
	}
}

type PortAllocator struct {
	rangeStart int
	rangeEnd   int
}

func (a *PortAllocator) Range() (int, int) {
	return a.rangeStart, a.rangeEnd
}

// Allocate picks one free host port per requested logical service name.
// The held set must cover every port of instances currently pending or
// running; ports of stopped, errored, or deleted instances are reusable.
// Returns ExhaustedRangeError, and allocates nothing, when fewer free
// ports remain than names requested.
func (a *PortAllocator) Allocate(requested []string, held map[int]struct{}) (map[string]int, error) {
	rangeSize := a.rangeEnd - a.rangeStart + 1
	free := rangeSize - a.countHeldInRange(held)
	if free < len(requested) {
		return nil, &ExhaustedRangeError{Requested: len(requested), Free: free}
	}

	allocated := make(map[string]int, len(requested))
	chosen := make(map[int]struct{}, len(requested))

	for _, name := range requested {
		port, ok, err := a.probeRandom(held, chosen)
		if err != nil {
			return nil, err
		}
		if !ok {
			port, err = a.scanFallback(held, chosen)
			if err != nil {
				return nil, err
			}
		}
		allocated[name] = port
		chosen[port] = struct{}{}
	}

	return allocated, nil
}

// IsAvailable reports whether at least count free ports remain, using
// the same occupancy definition as Allocate.
func (a *PortAllocator) IsAvailable(held map[int]struct{}, count int) bool {
	rangeSize := a.rangeEnd - a.rangeStart + 1
	return rangeSize-a.countHeldInRange(held) >= count
}

func (a *PortAllocator) countHeldInRange(held map[int]struct{}) int {
	n := 0
	for p := range held {
		if p >= a.rangeStart && p <= a.rangeEnd {
			n++
		}
	}
	return n
}

func (a *PortAllocator) probeRandom(held, chosen map[int]struct{}) (int, bool, error) {
	rangeSize := a.rangeEnd - a.rangeStart + 1
	for i := 0; i < randomAttempts; i++ {
		idx, err := utils.RandIndex(rangeSize)
		if err != nil {
			return 0, false, err
		}
		candidate := a.rangeStart + idx
		if _, used := held[candidate]; used {
			continue
		}
		if _, used := chosen[candidate]; used {
			continue
		}
		return candidate, true, nil
	}
	return 0, false, nil
}

// scanFallback materializes the remaining free set and shuffles it.
// probeRandom guarantees termination is not an issue here: the caller
// already verified at least one free port remains.
func (a *PortAllocator) scanFallback(held, chosen map[int]struct{}) (int, error) {
	var available []int
	for p := a.rangeStart; p <= a.rangeEnd; p++ {
		if _, used := held[p]; used {
			continue
		}
		if _, used := chosen[p]; used {
			continue
		}
		available = append(available, p)
	}
	if len(available) == 0 {
		return 0, &ExhaustedRangeError{Requested: 1, Free: 0}
	}

	// Fisher-Yates with the same entropy source as the probe phase.
	for i := len(available) - 1; i > 0; i-- {
		j, err := utils.RandIndex(i + 1)
		if err != nil {
			return 0, err
		}
		available[i], available[j] = available[j], available[i]
	}
	return available[0], nil
}

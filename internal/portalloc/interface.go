package portalloc

type AllocatorHandler interface {
	Allocate(requested []string, held map[int]struct{}) (map[string]int, error)
	IsAvailable(held map[int]struct{}, count int) bool
	Range() (start, end int)
}

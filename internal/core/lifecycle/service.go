package lifecycle

import (
	"sort"

	"go.uber.org/zap"

	"devbay/internal/catalog"
	"devbay/internal/core/audit"
	"devbay/internal/engine"
	"devbay/internal/portalloc"
	"devbay/internal/store/ism"
	"devbay/internal/store/usm"
)

func NewLifecycleService(
	ismHandler ism.IsmHandler,
	usmHandler usm.UsmHandler,
	catalogHandler catalog.CatalogHandler,
	allocator portalloc.AllocatorHandler,
	engineHandler engine.EngineHandler,
	recorder audit.RecorderHandler,
	log *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		ismHandler:     ismHandler,
		usmHandler:     usmHandler,
		catalogHandler: catalogHandler,
		allocator:      allocator,
		engineHandler:  engineHandler,
		recorder:       recorder,
		log:            log,
	}
}

// LifecycleService runs the four lifecycle operations as idempotent,
// retry-aware procedures. It owns all Instance mutations; everything
// else only reads.
type LifecycleService struct {
	ismHandler     ism.IsmHandler
	usmHandler     usm.UsmHandler
	catalogHandler catalog.CatalogHandler
	allocator      portalloc.AllocatorHandler
	engineHandler  engine.EngineHandler
	recorder       audit.RecorderHandler
	log            *zap.Logger
}

// ForceError pushes the instance into the error state with the given
// message. Used by the worker harness when the create retry budget is
// exhausted.
func (s *LifecycleService) ForceError(instanceId string, message string) error {
	return s.ismHandler.SetStatus(instanceId, ism.StatusError, message)
}

func sortedNames(ports map[string]int) []string {
	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

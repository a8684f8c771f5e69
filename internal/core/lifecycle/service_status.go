package lifecycle

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"devbay/internal/engine"
	"devbay/internal/store/ism"
)

// == service: status ==
//
// Status answers from the record after reconciling it against the
// engine's view. Instances that never reached the engine, and instances
// already in the error state, are reported as stored.
func (s *LifecycleService) Status(ctx context.Context, instanceId string) (StatusResult, error) {
	rec, err := s.ismHandler.GetInstance(instanceId)
	if err != nil {
		return StatusResult{}, err
	}

	if rec.ContainerId != "" && rec.Status != ism.StatusError {
		observed := reconcileStatus(s.engineHandler.GetStatus(ctx, rec.ContainerId))
		if observed != rec.Status {
			s.log.Info("status drift detected",
				zap.String("instanceId", instanceId),
				zap.String("stored", string(rec.Status)),
				zap.String("observed", string(observed)),
			)
			if err := s.ismHandler.SetStatus(instanceId, observed, rec.ErrorMessage); err != nil {
				return StatusResult{}, err
			}
			rec.Status = observed
		}
	}

	urls := make(map[string]string, len(rec.HostPorts))
	for name, port := range rec.HostPorts {
		urls[name] = fmt.Sprintf("http://localhost:%d", port)
	}

	return StatusResult{
		Status:       rec.Status,
		ErrorMessage: rec.ErrorMessage,
		ServiceUrls:  urls,
	}, nil
}

// reconcileStatus maps the engine's observation onto the stored state
// machine. A container the engine no longer knows about is an error,
// not a deletion: only Delete removes records.
func reconcileStatus(observed engine.Status) ism.InstanceStatus {
	switch observed {
	case engine.StatusRunning:
		return ism.StatusRunning
	case engine.StatusStopped:
		return ism.StatusStopped
	case engine.StatusPending:
		return ism.StatusPending
	default:
		return ism.StatusError
	}
}

func (s *LifecycleService) Logs(ctx context.Context, instanceId string, tailLines int) (string, error) {
	rec, err := s.ismHandler.GetInstance(instanceId)
	if err != nil {
		return "", err
	}
	if rec.ContainerId == "" {
		return "", fmt.Errorf("no container found for instance %s", instanceId)
	}
	return s.engineHandler.GetLogs(ctx, rec.ContainerId, tailLines), nil
}

func (s *LifecycleService) StreamLogs(ctx context.Context, instanceId string) (io.ReadCloser, error) {
	rec, err := s.ismHandler.GetInstance(instanceId)
	if err != nil {
		return nil, err
	}
	if rec.ContainerId == "" {
		return nil, fmt.Errorf("no container found for instance %s", instanceId)
	}
	return s.engineHandler.StreamLogs(ctx, rec.ContainerId)
}

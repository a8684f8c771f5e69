package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"devbay/internal/store/alm"
	"devbay/internal/store/ism"
)

// == service: stop ==
//
// Stop asks the engine for a graceful shutdown. On failure the status
// stays as it was; only the error message is recorded.
func (s *LifecycleService) Stop(ctx context.Context, instanceId string) error {
	rec, err := s.ismHandler.GetInstance(instanceId)
	if err != nil {
		return err
	}
	if rec.ContainerId == "" {
		return fmt.Errorf("no container found for instance %s", instanceId)
	}

	if err := s.engineHandler.StopContainer(ctx, rec.ContainerId); err != nil {
		if msgErr := s.ismHandler.SetErrorMessage(instanceId, err.Error()); msgErr != nil {
			s.log.Error("record stop failure failed", zap.String("instanceId", instanceId), zap.Error(msgErr))
		}
		return err
	}

	if err := s.ismHandler.SetStatus(instanceId, ism.StatusStopped, ""); err != nil {
		return err
	}

	s.recorder.Record(rec.UserId, alm.ActionStop, instanceId, rec.TemplateName,
		fmt.Sprintf("stopped container %s", shortId(rec.ContainerId)))

	s.log.Info("instance stopped",
		zap.String("instanceId", instanceId),
		zap.String("containerId", shortId(rec.ContainerId)),
	)
	return nil
}

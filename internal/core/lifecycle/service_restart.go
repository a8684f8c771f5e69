package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"devbay/internal/store/alm"
	"devbay/internal/store/ism"
)

// == service: restart ==
//
// Restart bounces the existing container. A failure does not force the
// error state: the container may well still be usable, so only the
// message is recorded.
func (s *LifecycleService) Restart(ctx context.Context, instanceId string) error {
	rec, err := s.ismHandler.GetInstance(instanceId)
	if err != nil {
		return err
	}
	if rec.ContainerId == "" {
		return fmt.Errorf("no container found for instance %s", instanceId)
	}

	if err := s.engineHandler.RestartContainer(ctx, rec.ContainerId); err != nil {
		if msgErr := s.ismHandler.SetErrorMessage(instanceId, err.Error()); msgErr != nil {
			s.log.Error("record restart failure failed", zap.String("instanceId", instanceId), zap.Error(msgErr))
		}
		return err
	}

	if err := s.ismHandler.SetStatus(instanceId, ism.StatusRunning, ""); err != nil {
		return err
	}

	s.recorder.Record(rec.UserId, alm.ActionStart, instanceId, rec.TemplateName,
		fmt.Sprintf("restarted container %s", shortId(rec.ContainerId)))

	s.log.Info("instance restarted",
		zap.String("instanceId", instanceId),
		zap.String("containerId", shortId(rec.ContainerId)),
	)
	return nil
}

package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"devbay/internal/store/alm"
)

// == service: delete ==
//
// Delete tears the instance down in reverse creation order. Engine-side
// removals are best effort; the record and its port reservations are
// always released so a hung engine cannot wedge a port range.
func (s *LifecycleService) Delete(ctx context.Context, instanceId string, actorUserId string, retainVolume bool) error {
	rec, err := s.ismHandler.GetInstance(instanceId)
	if err != nil {
		return err
	}

	containerDetail := "N/A"
	if rec.ContainerId != "" {
		containerDetail = shortId(rec.ContainerId)
		if err := s.engineHandler.DeleteContainer(ctx, rec.ContainerId, true); err != nil {
			s.log.Warn("container removal failed, continuing teardown",
				zap.String("instanceId", instanceId),
				zap.String("containerId", containerDetail),
				zap.Error(err),
			)
		}
	}

	volumeDetail := ""
	if rec.VolumeName != "" {
		if retainVolume {
			volumeDetail = fmt.Sprintf(" (preserved volume %s)", rec.VolumeName)
		} else {
			volumeDetail = fmt.Sprintf(" (removed volume %s)", rec.VolumeName)
			if err := s.engineHandler.DeleteVolume(ctx, rec.VolumeName); err != nil {
				s.log.Warn("volume removal failed, continuing teardown",
					zap.String("instanceId", instanceId),
					zap.String("volumeName", rec.VolumeName),
					zap.Error(err),
				)
			}
		}
	}

	s.recorder.Record(actorUserId, alm.ActionDelete, instanceId, rec.TemplateName,
		fmt.Sprintf("deleted container %s%s", containerDetail, volumeDetail))

	if err := s.ismHandler.Remove(instanceId); err != nil {
		return err
	}

	s.log.Info("instance deleted",
		zap.String("instanceId", instanceId),
		zap.Bool("retainVolume", retainVolume),
	)
	return nil
}

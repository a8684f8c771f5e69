package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"devbay/internal/catalog"
	"devbay/internal/engine"
	"devbay/internal/portalloc"
	"devbay/internal/store/alm"
	"devbay/internal/store/ism"
)

// reserveAttempts bounds how often an allocation is re-drawn after
// losing a reservation race to a concurrent create.
const reserveAttempts = 3

// == service: create ==
//
// Create allocates ports, provisions the volume when the template
// declares mounts, and starts the container. Any failure leaves the
// instance in the error state with a message; the returned error keeps
// its engine typing so the worker harness can retry transient ones by
// invoking Create again. Earlier side effects (reserved ports, created
// volume) are detected and reused on re-invocation, never repeated.
func (s *LifecycleService) Create(ctx context.Context, instanceId string) error {
	rec, err := s.ismHandler.GetInstance(instanceId)
	if err != nil {
		return err
	}

	switch rec.Status {
	case ism.StatusRunning:
		// double delivery, nothing to do
		s.log.Info("create skipped, already running", zap.String("instanceId", instanceId))
		return nil
	case ism.StatusPending, ism.StatusError:
		// pending is the normal path; error is a retry after a
		// partial failure
	default:
		return fmt.Errorf("create not allowed for instance %s in status %s", instanceId, rec.Status)
	}

	tpl, err := s.catalogHandler.Get(rec.TemplateName)
	if err != nil {
		msg := fmt.Sprintf("template lookup failed: %v", err)
		s.failCreate(instanceId, msg)
		return err
	}
	user, err := s.usmHandler.GetUser(rec.UserId)
	if err != nil {
		msg := fmt.Sprintf("owner lookup failed: %v", err)
		s.failCreate(instanceId, msg)
		return err
	}

	// 1. ports
	hostPorts, err := s.ensurePorts(instanceId, rec, tpl.Ports)
	if err != nil {
		return err
	}

	// 2. volume
	volume := ""
	if len(tpl.VolumeMounts) > 0 {
		volume = rec.VolumeName
		if volume == "" {
			volume = volumeName(user.Username, tpl.Name, instanceId)
		}
		if _, err := s.engineHandler.CreateVolume(ctx, volume); err != nil {
			s.failCreate(instanceId, fmt.Sprintf("volume creation failed: %v", err))
			return err
		}
		if err := s.ismHandler.SetVolumeName(instanceId, volume); err != nil {
			return err
		}
	}

	// 3. container
	containerId, err := s.engineHandler.StartContainer(ctx, startSpec(tpl, rec, hostPorts, volume, containerName(user.Username, tpl.Name, instanceId)))
	if err != nil {
		s.failCreate(instanceId, fmt.Sprintf("container start failed: %v", err))
		return err
	}

	if err := s.ismHandler.SetContainerId(instanceId, containerId); err != nil {
		return err
	}
	if err := s.ismHandler.SetStatus(instanceId, ism.StatusRunning, ""); err != nil {
		return err
	}

	s.recorder.Record(rec.UserId, alm.ActionCreate, instanceId, tpl.Name,
		fmt.Sprintf("started container %s", shortId(containerId)))

	s.log.Info("instance created",
		zap.String("instanceId", instanceId),
		zap.String("containerId", shortId(containerId)),
		zap.String("template", tpl.Name),
	)
	return nil
}

// ensurePorts reserves one host port per logical service. A previous
// attempt's allocation is re-asserted rather than re-drawn; a lost
// reservation race triggers a fresh draw against the updated held set.
// Port-range exhaustion is terminal: no audit event, no retry.
func (s *LifecycleService) ensurePorts(instanceId string, rec ism.InstanceRecord, templatePorts map[string]int) (map[string]int, error) {
	if len(templatePorts) == 0 {
		return nil, nil
	}

	if len(rec.HostPorts) > 0 {
		if err := s.ismHandler.ReservePorts(instanceId, rec.HostPorts); err == nil {
			return rec.HostPorts, nil
		} else if !errors.Is(err, ism.ErrPortConflict) {
			return nil, err
		}
		// a concurrent create took one of our ports while this
		// instance was outside the ledger; draw again
	}

	var lastErr error
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		held, err := s.ismHandler.HeldPorts()
		if err != nil {
			return nil, err
		}

		ports, err := s.allocator.Allocate(sortedNames(templatePorts), held)
		if err != nil {
			var exhausted *portalloc.ExhaustedRangeError
			if errors.As(err, &exhausted) {
				s.failCreate(instanceId, fmt.Sprintf("port allocation failed: %v", err))
			}
			return nil, err
		}

		if err := s.ismHandler.ReservePorts(instanceId, ports); err != nil {
			if errors.Is(err, ism.ErrPortConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return ports, nil
	}

	s.failCreate(instanceId, fmt.Sprintf("port reservation failed after %d attempts: %v", reserveAttempts, lastErr))
	return nil, lastErr
}

func startSpec(tpl catalog.TemplateSpec, rec ism.InstanceRecord, hostPorts map[string]int, volume, name string) engine.StartSpec {
	return engine.StartSpec{
		Image:         tpl.Image,
		Name:          name,
		InternalPorts: tpl.Ports,
		HostPorts:     hostPorts,
		TemplateEnv:   tpl.Environment,
		InstanceEnv:   rec.EnvironmentVars,
		CpuLimit:      tpl.CpuLimit,
		MemoryLimitMb: tpl.MemoryLimitMb,
		VolumeName:    volume,
		VolumeMounts:  tpl.VolumeMounts,
	}
}

func (s *LifecycleService) failCreate(instanceId string, message string) {
	if err := s.ismHandler.SetStatus(instanceId, ism.StatusError, message); err != nil {
		s.log.Error("record create failure failed",
			zap.String("instanceId", instanceId),
			zap.Error(err),
		)
	}
}

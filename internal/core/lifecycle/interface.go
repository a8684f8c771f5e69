package lifecycle

import (
	"context"
	"io"
)

type LifecycleHandler interface {
	Create(ctx context.Context, instanceId string) error
	Stop(ctx context.Context, instanceId string) error
	Restart(ctx context.Context, instanceId string) error
	Delete(ctx context.Context, instanceId string, actorUserId string, retainVolume bool) error

	Status(ctx context.Context, instanceId string) (StatusResult, error)
	Logs(ctx context.Context, instanceId string, tailLines int) (string, error)
	StreamLogs(ctx context.Context, instanceId string) (io.ReadCloser, error)

	ForceError(instanceId string, message string) error
}

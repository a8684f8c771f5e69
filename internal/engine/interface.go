package engine

import (
	"context"
	"io"
)

// EngineHandler is the uniform contract over the container engine's
// control plane. Every mutating operation returns either a success value
// or a typed error; no engine client error escapes unclassified.
type EngineHandler interface {
	PullImage(ctx context.Context, ref string) error

	CreateVolume(ctx context.Context, name string) (string, error)
	DeleteVolume(ctx context.Context, name string) error

	StartContainer(ctx context.Context, spec StartSpec) (string, error)
	StopContainer(ctx context.Context, engineId string) error
	RestartContainer(ctx context.Context, engineId string) error
	DeleteContainer(ctx context.Context, engineId string, force bool) error

	GetStatus(ctx context.Context, engineId string) Status
	GetLogs(ctx context.Context, engineId string, tailLines int) string
	StreamLogs(ctx context.Context, engineId string) (io.ReadCloser, error)
}

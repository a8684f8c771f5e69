package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"go.uber.org/zap"

	"devbay/internal/engine"
)

const (
	// cpuPeriod is the scheduler period the cpu-core limit is quoted
	// against: quota = cores * period.
	cpuPeriod = 100000

	// stopGraceSeconds is how long the engine waits for a graceful
	// shutdown before it force-kills on stop and restart.
	stopGraceSeconds = 10
)

func NewDriver(host string, log *zap.Logger) (*Driver, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client failed: %w", err)
	}
	return &Driver{cli: cli, log: log}, nil
}

// Driver implements engine.EngineHandler against the Docker API.
type Driver struct {
	cli *client.Client
	log *zap.Logger
}

func (d *Driver) PullImage(ctx context.Context, ref string) error {
	rc, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return &engine.APIError{Op: "pull image", Err: err}
	}
	defer rc.Close()

	// the pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return &engine.APIError{Op: "pull image", Err: err}
	}
	d.log.Info("pulled image", zap.String("image", ref))
	return nil
}

func (d *Driver) CreateVolume(ctx context.Context, name string) (string, error) {
	vol, err := d.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name})
	if err != nil {
		return "", &engine.APIError{Op: "create volume", Err: err}
	}
	d.log.Info("created volume", zap.String("volume", vol.Name))
	return vol.Name, nil
}

func (d *Driver) DeleteVolume(ctx context.Context, name string) error {
	err := d.cli.VolumeRemove(ctx, name, false)
	if err != nil {
		if errdefs.IsNotFound(err) {
			// already deleted, treat as success
			d.log.Warn("volume not found on delete", zap.String("volume", name))
			return nil
		}
		return &engine.APIError{Op: "delete volume", Err: err}
	}
	d.log.Info("deleted volume", zap.String("volume", name))
	return nil
}

// StartContainer creates and starts a container from the given spec and
// returns the engine id. If the image is missing locally it is pulled
// once before the create is retried.
func (d *Driver) StartContainer(ctx context.Context, spec engine.StartSpec) (string, error) {
	exposed, bindings := buildPortBindings(spec.InternalPorts, spec.HostPorts)

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          mergeEnv(spec.TemplateEnv, spec.InstanceEnv),
		ExposedPorts: exposed,
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Resources: container.Resources{
			Memory:    int64(spec.MemoryLimitMb) * 1024 * 1024,
			CPUPeriod: cpuPeriod,
			CPUQuota:  int64(spec.CpuLimit * float64(cpuPeriod)),
		},
		// the engine keeps the container alive across host restarts
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		Mounts:        buildVolumeMounts(spec.VolumeName, spec.VolumeMounts),
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if errdefs.IsNotFound(err) {
		if pullErr := d.PullImage(ctx, spec.Image); pullErr != nil {
			return "", fmt.Errorf("image %s: %w", spec.Image, engine.ErrNotFound)
		}
		resp, err = d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	}
	if err != nil {
		return "", &engine.APIError{Op: "create container", Err: err}
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", &engine.APIError{Op: "start container", Err: err}
	}

	d.log.Info("started container",
		zap.String("containerId", shortId(resp.ID)),
		zap.String("image", spec.Image),
	)
	return resp.ID, nil
}

func (d *Driver) StopContainer(ctx context.Context, engineId string) error {
	grace := stopGraceSeconds
	err := d.cli.ContainerStop(ctx, engineId, container.StopOptions{Timeout: &grace})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("container %s: %w", shortId(engineId), engine.ErrNotFound)
		}
		return &engine.APIError{Op: "stop container", Err: err}
	}
	d.log.Info("stopped container", zap.String("containerId", shortId(engineId)))
	return nil
}

func (d *Driver) RestartContainer(ctx context.Context, engineId string) error {
	grace := stopGraceSeconds
	err := d.cli.ContainerRestart(ctx, engineId, container.StopOptions{Timeout: &grace})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("container %s: %w", shortId(engineId), engine.ErrNotFound)
		}
		return &engine.APIError{Op: "restart container", Err: err}
	}
	d.log.Info("restarted container", zap.String("containerId", shortId(engineId)))
	return nil
}

func (d *Driver) DeleteContainer(ctx context.Context, engineId string, force bool) error {
	err := d.cli.ContainerRemove(ctx, engineId, container.RemoveOptions{Force: force})
	if err != nil {
		if errdefs.IsNotFound(err) {
			// already deleted, treat as success
			d.log.Warn("container not found on delete", zap.String("containerId", shortId(engineId)))
			return nil
		}
		return &engine.APIError{Op: "delete container", Err: err}
	}
	d.log.Info("deleted container", zap.String("containerId", shortId(engineId)))
	return nil
}

// GetStatus is a pure query; every engine answer maps to exactly one
// Status value and failures collapse to StatusError.
func (d *Driver) GetStatus(ctx context.Context, engineId string) engine.Status {
	insp, err := d.cli.ContainerInspect(ctx, engineId)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return engine.StatusNotFound
		}
		d.log.Error("inspect container failed", zap.String("containerId", shortId(engineId)), zap.Error(err))
		return engine.StatusError
	}
	if insp.State == nil {
		return engine.StatusError
	}
	return mapEngineState(insp.State.Status)
}

// GetLogs is best-effort: diagnostic output only, so any failure becomes
// a placeholder string instead of an error.
func (d *Driver) GetLogs(ctx context.Context, engineId string, tailLines int) string {
	rc, err := d.cli.ContainerLogs(ctx, engineId, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Tail:       strconv.Itoa(tailLines),
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Sprintf("container %s not found", shortId(engineId))
		}
		return fmt.Sprintf("error retrieving logs: %v", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return fmt.Sprintf("error retrieving logs: %v", err)
	}
	return buf.String()
}

// StreamLogs follows the container log stream, demuxed to plain text.
func (d *Driver) StreamLogs(ctx context.Context, engineId string) (io.ReadCloser, error) {
	rc, err := d.cli.ContainerLogs(ctx, engineId, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       "100",
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", shortId(engineId), engine.ErrNotFound)
		}
		return nil, &engine.APIError{Op: "stream logs", Err: err}
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, rc)
		rc.Close()
		pw.CloseWithError(err)
	}()
	return pr, nil
}

// buildPortBindings joins the template's logical-name -> internal-port
// map with the allocated logical-name -> host-port map. Names present on
// only one side are dropped.
func buildPortBindings(internalPorts, hostPorts map[string]int) (nat.PortSet, nat.PortMap) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}

	for name, internal := range internalPorts {
		hostPort, ok := hostPorts[name]
		if !ok {
			continue
		}
		port := nat.Port(strconv.Itoa(internal) + "/tcp")
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{
			{HostIP: "0.0.0.0", HostPort: strconv.Itoa(hostPort)},
		}
	}
	return exposed, bindings
}

// mergeEnv flattens template defaults overlaid with instance variables;
// instance values win on key collision. Output is sorted so the produced
// container config is deterministic.
func mergeEnv(templateEnv, instanceEnv map[string]string) []string {
	merged := make(map[string]string, len(templateEnv)+len(instanceEnv))
	for k, v := range templateEnv {
		merged[k] = v
	}
	for k, v := range instanceEnv {
		merged[k] = v
	}

	if len(merged) == 0 {
		return nil
	}
	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// buildVolumeMounts binds the single instance volume read-write at every
// container path the template declares.
func buildVolumeMounts(volumeName string, volumeMounts map[string]string) []mount.Mount {
	if volumeName == "" || len(volumeMounts) == 0 {
		return nil
	}

	paths := make([]string, 0, len(volumeMounts))
	for _, p := range volumeMounts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	mounts := make([]mount.Mount, 0, len(paths))
	for _, p := range paths {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeVolume,
			Source: volumeName,
			Target: p,
		})
	}
	return mounts
}

func mapEngineState(state string) engine.Status {
	switch state {
	case "running":
		return engine.StatusRunning
	case "exited", "paused":
		return engine.StatusStopped
	case "created", "restarting":
		return engine.StatusPending
	default:
		// dead, removing, or anything the engine grows later
		return engine.StatusError
	}
}

func shortId(engineId string) string {
	if len(engineId) > 12 {
		return engineId[:12]
	}
	return engineId
}

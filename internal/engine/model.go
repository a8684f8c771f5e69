package engine

// Status is the engine-observed container state, normalized to the small
// set the orchestrator reasons about. The mapping is total: anything the
// engine reports that has no equivalent here becomes StatusError.
type Status string

const (
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusPending  Status = "pending"
	StatusError    Status = "error"
	StatusNotFound Status = "not_found"
)

// StartSpec carries everything the driver needs to create and start one
// container. Port and mount maps are keyed by logical service name.
type StartSpec struct {
	Image string
	Name  string

	InternalPorts map[string]int
	HostPorts     map[string]int

	TemplateEnv map[string]string
	InstanceEnv map[string]string

	CpuLimit      float64
	MemoryLimitMb int

	VolumeName   string
	VolumeMounts map[string]string
}

package ism

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("instance not found")

	// ErrPortConflict is returned when a reservation lost the race for
	// at least one port. The caller re-allocates against a fresh held
	// set and tries again.
	ErrPortConflict = errors.New("port already reserved")
)

type InstanceStatus string

const (
	StatusPending InstanceStatus = "pending"
	StatusRunning InstanceStatus = "running"
	StatusStopped InstanceStatus = "stopped"
	StatusError   InstanceStatus = "error"
	StatusDeleted InstanceStatus = "deleted"
)

// IsActive reports whether the status counts toward port occupancy and
// per-user instance quota.
func (s InstanceStatus) IsActive() bool {
	return s == StatusPending || s == StatusRunning
}

type InstanceRecord struct {
	InstanceId   string `json:"instanceId"`
	UserId       string `json:"userId"`
	TemplateName string `json:"templateName"`
	DisplayName  string `json:"displayName,omitempty"`

	ContainerId string         `json:"containerId,omitempty"`
	HostPorts   map[string]int `json:"hostPorts,omitempty"`
	VolumeName  string         `json:"volumeName,omitempty"`

	Status       InstanceStatus `json:"status"`
	ErrorMessage string         `json:"errorMessage,omitempty"`

	EnvironmentVars map[string]string `json:"environmentVars,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

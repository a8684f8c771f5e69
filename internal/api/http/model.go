package http

import (
	"time"

	"devbay/internal/store/ism"
)

// == create ==
type CreateInstanceRequest struct {
	UserId          string            `json:"userId" example:"01jc5ex0w1n9k8rwfyv2m3qhtd"`
	TemplateName    string            `json:"templateName" example:"workbench"`
	DisplayName     string            `json:"displayName,omitempty" example:"alice-scratch"`
	EnvironmentVars map[string]string `json:"environmentVars,omitempty"`
}

type CreateInstanceResponse struct {
	Id string `json:"id"`
}

// == actions ==
type ActionResponse struct {
	Id string `json:"id"`
}

// == delete ==
type DeleteInstanceRequest struct {
	RetainVolume *bool `json:"retainVolume,omitempty" example:"true"`
}

// == status ==
type StatusResponse struct {
	Id           string             `json:"id"`
	Status       ism.InstanceStatus `json:"status"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	ServiceUrls  map[string]string  `json:"serviceUrls,omitempty"`
}

// == list ==
type InstanceSummary struct {
	Id           string             `json:"id"`
	UserId       string             `json:"userId"`
	TemplateName string             `json:"templateName"`
	DisplayName  string             `json:"displayName,omitempty"`
	Status       ism.InstanceStatus `json:"status"`
	HostPorts    map[string]int     `json:"hostPorts,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// == logs ==
type LogsResponse struct {
	Id   string `json:"id"`
	Logs string `json:"logs"`
}

type ApiResponse struct {
	Status  string `json:"status"` // success | fail
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

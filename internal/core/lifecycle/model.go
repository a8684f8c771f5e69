package lifecycle

import (
	"fmt"

	"devbay/internal/store/ism"
)

// StatusResult is the synchronous status-query answer. ServiceUrls maps
// each logical service to its local host URL.
type StatusResult struct {
	Status       ism.InstanceStatus `json:"status"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	ServiceUrls  map[string]string  `json:"serviceUrls"`
}

// Naming conventions for engine-side objects. The volume name is stable
// for a user/template/instance triple so a later instance can reuse it.
func containerName(username, templateName, instanceId string) string {
	return fmt.Sprintf("%s_%s_%s", username, templateName, instanceId)
}

func volumeName(username, templateName, instanceId string) string {
	return containerName(username, templateName, instanceId) + "_data"
}

func shortId(engineId string) string {
	if len(engineId) > 12 {
		return engineId[:12]
	}
	return engineId
}

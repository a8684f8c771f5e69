package alm

import "time"

type Action string

const (
	ActionCreate Action = "create"
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionDelete Action = "delete"
)

// AuditRecord is an append-only fact. ActorUserId may be empty when the
// acting user could not be resolved at record time.
type AuditRecord struct {
	EventId      string    `json:"eventId"`
	ActorUserId  string    `json:"actorUserId,omitempty"`
	Action       Action    `json:"action"`
	InstanceId   string    `json:"instanceId,omitempty"`
	TemplateName string    `json:"templateName,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

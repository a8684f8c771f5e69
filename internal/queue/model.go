package queue

// Subjects carry one lifecycle action each. Workers subscribe to the
// whole tree under one queue group so an action is handled exactly once
// per delivery regardless of pool size.
const (
	SubjectCreate  = "lifecycle.create"
	SubjectStop    = "lifecycle.stop"
	SubjectRestart = "lifecycle.restart"
	SubjectDelete  = "lifecycle.delete"

	subjectWildcard = "lifecycle.>"
	queueGroup      = "devbay-workers"
)

// Command is the wire payload for every lifecycle subject. RetainVolume
// is only meaningful on delete.
type Command struct {
	InstanceId   string `json:"instanceId"`
	ActorUserId  string `json:"actorUserId"`
	RetainVolume bool   `json:"retainVolume,omitempty"`
}

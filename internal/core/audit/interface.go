package audit

import "devbay/internal/store/alm"

// RecorderHandler appends audit facts. Implementations must never fail
// the operation that called them.
type RecorderHandler interface {
	Record(actorUserId string, action alm.Action, instanceId, templateName, detail string)
}

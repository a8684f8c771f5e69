package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devbay/internal/store/alm"
	"devbay/internal/store/usm"
)

func NewRecorder(almHandler alm.AlmHandler, usmHandler usm.UsmHandler, log *zap.Logger) *Recorder {
	return &Recorder{
		almHandler: almHandler,
		usmHandler: usmHandler,
		log:        log,
	}
}

type Recorder struct {
	almHandler alm.AlmHandler
	usmHandler usm.UsmHandler
	log        *zap.Logger
}

// Record appends one audit event. Actor resolution is best-effort: a
// user that no longer exists is recorded as a null actor. Store failures
// are logged and swallowed so the lifecycle operation's outcome is never
// affected.
func (r *Recorder) Record(actorUserId string, action alm.Action, instanceId, templateName, detail string) {
	actor := actorUserId
	if actor != "" {
		if _, err := r.usmHandler.GetUser(actor); err != nil {
			if !errors.Is(err, usm.ErrNotFound) {
				r.log.Warn("audit actor lookup failed", zap.String("userId", actor), zap.Error(err))
			}
			actor = ""
		}
	}

	rec := alm.AuditRecord{
		EventId:      uuid.NewString(),
		ActorUserId:  actor,
		Action:       action,
		InstanceId:   instanceId,
		TemplateName: templateName,
		Detail:       detail,
		Timestamp:    time.Now(),
	}
	if err := r.almHandler.Append(rec); err != nil {
		r.log.Error("audit append failed",
			zap.String("action", string(action)),
			zap.String("instanceId", instanceId),
			zap.Error(err),
		)
	}
}

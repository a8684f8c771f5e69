package alm

type AlmHandler interface {
	Append(rec AuditRecord) error
	ListEvents(limit int) ([]AuditRecord, error)
}

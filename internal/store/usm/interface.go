package usm

type UsmHandler interface {
	StoreUser(rec UserRecord) error
	GetUser(userId string) (UserRecord, error)
	ListUsers() ([]UserRecord, error)
}

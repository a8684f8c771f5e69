package ism

type IsmHandler interface {
	StoreInstance(rec InstanceRecord) error
	GetInstance(instanceId string) (InstanceRecord, error)
	ListInstances() ([]InstanceRecord, error)
	ListInstancesByUser(userId string) ([]InstanceRecord, error)
	CountActiveByUser(userId string) (int, error)

	HeldPorts() (map[int]struct{}, error)
	ReservePorts(instanceId string, ports map[string]int) error

	SetStatus(instanceId string, status InstanceStatus, errorMessage string) error
	SetErrorMessage(instanceId string, errorMessage string) error
	SetContainerId(instanceId string, containerId string) error
	SetVolumeName(instanceId string, volumeName string) error

	Remove(instanceId string) error
}

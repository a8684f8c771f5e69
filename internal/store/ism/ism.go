package ism

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

var (
	instancePrefix = []byte("instance/")
	portPrefix     = []byte("port/")
)

func instanceKey(instanceId string) []byte {
	return append(append([]byte{}, instancePrefix...), instanceId...)
}

func portKey(port int) []byte {
	return append(append([]byte{}, portPrefix...), strconv.Itoa(port)...)
}

func NewIsmManager(store *IsmStore) *IsmManager {
	return &IsmManager{store: store}
}

// IsmManager owns instance records and the port-reservation ledger. The
// ledger holds one port/<n> key per port of every pending or running
// instance; reservations and status transitions maintain it inside the
// same transaction that writes the record, so two concurrent creates can
// never both commit the same port.
type IsmManager struct {
	store *IsmStore
}

func (m *IsmManager) StoreInstance(rec InstanceRecord) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	return m.store.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(instanceKey(rec.InstanceId)); err == nil {
			return fmt.Errorf("instance %s already exists", rec.InstanceId)
		}
		return writeInstance(txn, rec)
	})
}

func (m *IsmManager) GetInstance(instanceId string) (InstanceRecord, error) {
	var rec InstanceRecord
	err := m.store.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readInstance(txn, instanceId)
		return err
	})
	return rec, err
}

func (m *IsmManager) ListInstances() ([]InstanceRecord, error) {
	var records []InstanceRecord
	err := m.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = instancePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(instancePrefix); it.ValidForPrefix(instancePrefix); it.Next() {
			var rec InstanceRecord
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

func (m *IsmManager) ListInstancesByUser(userId string) ([]InstanceRecord, error) {
	all, err := m.ListInstances()
	if err != nil {
		return nil, err
	}
	var records []InstanceRecord
	for _, rec := range all {
		if rec.UserId == userId {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (m *IsmManager) CountActiveByUser(userId string) (int, error) {
	records, err := m.ListInstancesByUser(userId)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, rec := range records {
		if rec.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

// HeldPorts returns the current reservation ledger: every port held by
// a pending or running instance.
func (m *IsmManager) HeldPorts() (map[int]struct{}, error) {
	held := map[int]struct{}{}
	err := m.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = portPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(portPrefix); it.ValidForPrefix(portPrefix); it.Next() {
			key := it.Item().Key()
			port, err := strconv.Atoi(string(key[len(portPrefix):]))
			if err != nil {
				return fmt.Errorf("port ledger key broken: %s", key)
			}
			held[port] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return held, nil
}

// ReservePorts persists the allocation and its ledger entries in one
// transaction. A ledger key already owned by another instance, or a
// write conflict with a concurrently committing reservation, surfaces
// as ErrPortConflict.
func (m *IsmManager) ReservePorts(instanceId string, ports map[string]int) error {
	err := m.store.db.Update(func(txn *badger.Txn) error {
		rec, err := readInstance(txn, instanceId)
		if err != nil {
			return err
		}

		for _, port := range ports {
			item, err := txn.Get(portKey(port))
			if err == nil {
				var owner []byte
				if owner, err = item.ValueCopy(nil); err != nil {
					return err
				}
				if string(owner) != instanceId {
					return fmt.Errorf("port %d: %w", port, ErrPortConflict)
				}
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}

		rec.HostPorts = ports
		rec.UpdatedAt = time.Now()
		if err := writeInstance(txn, rec); err != nil {
			return err
		}
		for _, port := range ports {
			if err := txn.Set(portKey(port), []byte(instanceId)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("concurrent reservation: %w", ErrPortConflict)
	}
	return err
}

// SetStatus updates status and error message and keeps the ledger in
// sync: entering pending or running re-asserts the instance's ledger
// keys, leaving them releases the keys so the ports become reusable.
func (m *IsmManager) SetStatus(instanceId string, status InstanceStatus, errorMessage string) error {
	return m.store.db.Update(func(txn *badger.Txn) error {
		rec, err := readInstance(txn, instanceId)
		if err != nil {
			return err
		}

		rec.Status = status
		rec.ErrorMessage = errorMessage
		rec.UpdatedAt = time.Now()
		if err := writeInstance(txn, rec); err != nil {
			return err
		}

		if status.IsActive() {
			for _, port := range rec.HostPorts {
				if err := txn.Set(portKey(port), []byte(instanceId)); err != nil {
					return err
				}
			}
			return nil
		}
		return releaseLedger(txn, rec)
	})
}

// SetErrorMessage records failure detail without touching the status.
// Stop and restart failures use this: the instance keeps its last known
// good state.
func (m *IsmManager) SetErrorMessage(instanceId string, errorMessage string) error {
	return m.updateInstance(instanceId, func(rec *InstanceRecord) {
		rec.ErrorMessage = errorMessage
	})
}

func (m *IsmManager) SetContainerId(instanceId string, containerId string) error {
	return m.updateInstance(instanceId, func(rec *InstanceRecord) {
		rec.ContainerId = containerId
	})
}

func (m *IsmManager) SetVolumeName(instanceId string, volumeName string) error {
	return m.updateInstance(instanceId, func(rec *InstanceRecord) {
		rec.VolumeName = volumeName
	})
}

func (m *IsmManager) Remove(instanceId string) error {
	return m.store.db.Update(func(txn *badger.Txn) error {
		rec, err := readInstance(txn, instanceId)
		if err != nil {
			return err
		}
		if err := releaseLedger(txn, rec); err != nil {
			return err
		}
		return txn.Delete(instanceKey(instanceId))
	})
}

func (m *IsmManager) updateInstance(instanceId string, mutate func(rec *InstanceRecord)) error {
	return m.store.db.Update(func(txn *badger.Txn) error {
		rec, err := readInstance(txn, instanceId)
		if err != nil {
			return err
		}
		mutate(&rec)
		rec.UpdatedAt = time.Now()
		return writeInstance(txn, rec)
	})
}

func readInstance(txn *badger.Txn, instanceId string) (InstanceRecord, error) {
	item, err := txn.Get(instanceKey(instanceId))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return InstanceRecord{}, ErrNotFound
		}
		return InstanceRecord{}, err
	}

	var rec InstanceRecord
	if err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &rec)
	}); err != nil {
		return InstanceRecord{}, err
	}
	return rec, nil
}

func writeInstance(txn *badger.Txn, rec InstanceRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(instanceKey(rec.InstanceId), b)
}

// releaseLedger removes the ledger keys this instance owns. Keys taken
// over by another instance in the meantime are left alone.
func releaseLedger(txn *badger.Txn, rec InstanceRecord) error {
	for _, port := range rec.HostPorts {
		item, err := txn.Get(portKey(port))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			return err
		}
		owner, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(owner) != rec.InstanceId {
			continue
		}
		if err := txn.Delete(portKey(port)); err != nil {
			return err
		}
	}
	return nil
}

package usm

import (
	"encoding/json"
	"errors"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

var userPrefix = []byte("user/")

func userKey(userId string) []byte {
	return append(append([]byte{}, userPrefix...), userId...)
}

func NewUsmStore(dir string) (*UsmStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir))
	opts.Logger = nil
	opts = opts.WithValueLogFileSize(1 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &UsmStore{db: db}, nil
}

type UsmStore struct {
	db *badger.DB
}

func (s *UsmStore) Close() error {
	return s.db.Close()
}

func NewUsmManager(store *UsmStore) *UsmManager {
	return &UsmManager{store: store}
}

type UsmManager struct {
	store *UsmStore
}

func (m *UsmManager) StoreUser(rec UserRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(rec.UserId), b)
	})
}

func (m *UsmManager) GetUser(userId string) (UserRecord, error) {
	var rec UserRecord
	err := m.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userId))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		})
	})
	return rec, err
}

func (m *UsmManager) ListUsers() ([]UserRecord, error) {
	var records []UserRecord
	err := m.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(userPrefix); it.ValidForPrefix(userPrefix); it.Next() {
			var rec UserRecord
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

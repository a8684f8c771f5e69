package alm

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

var auditPrefix = []byte("audit/")

// auditKey sorts lexically by timestamp so iteration order is
// chronological; the event id breaks ties.
func auditKey(rec AuditRecord) []byte {
	return fmt.Appendf(nil, "audit/%020d/%s", rec.Timestamp.UnixNano(), rec.EventId)
}

func NewAlmStore(dir string) (*AlmStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir))
	opts.Logger = nil
	opts = opts.WithValueLogFileSize(1 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &AlmStore{db: db}, nil
}

type AlmStore struct {
	db *badger.DB
}

func (s *AlmStore) Close() error {
	return s.db.Close()
}

func NewAlmManager(store *AlmStore) *AlmManager {
	return &AlmManager{store: store}
}

// AlmManager appends and lists audit records. Records are never updated
// or deleted.
type AlmManager struct {
	store *AlmStore
}

func (m *AlmManager) Append(rec AuditRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(auditKey(rec), b)
	})
}

// ListEvents returns up to limit records, newest first. limit <= 0 means
// no limit.
func (m *AlmManager) ListEvents(limit int) ([]AuditRecord, error) {
	var records []AuditRecord
	err := m.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = auditPrefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts just past the prefix range
		seek := append(append([]byte{}, auditPrefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(auditPrefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec AuditRecord
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

package ism

import (
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

func NewIsmStore(dir string) (*IsmStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir))
	opts.Logger = nil
	opts = opts.WithValueLogFileSize(1 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &IsmStore{db: db}, nil
}

type IsmStore struct {
	db *badger.DB
}

func (s *IsmStore) Close() error {
	return s.db.Close()
}

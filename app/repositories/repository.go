package repositories

import (
	"errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store owns the Badger database shared by the embedded repositories.
type Store struct {
	db    *badger.DB
	path  string
	locks postLocks
}

// Open opens the database at path. An empty path opens an in-memory
// database, used by tests and throwaway servers.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.
		WithLogger(nil).
		WithSyncWrites(false).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the on-disk location, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{db: s.db}
}

func (s *Store) Posts() *PostRepo {
	return &PostRepo{db: s.db, locks: &s.locks}
}

func (s *Store) Comments() *CommentRepo {
	return &CommentRepo{db: s.db}
}

// Backup streams a full snapshot of the database to w.
func (s *Store) Backup(w io.Writer) error {
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// Restore loads a snapshot written by Backup. Existing keys are overwritten.
func (s *Store) Restore(r io.Reader) error {
	if err := s.db.Load(r, 4); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

// Package localstore is a document store backend on a single sqlite file.
package localstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/flock"
	"github.com/mazzegi/docfacade/sqlitex"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/log"
)

type Options struct {
	Driver sqlitex.Driver
}

var _ store.Backend = (*Store)(nil)

type Store struct {
	file      string
	db        *sqlitex.DB
	publisher *changePublisher

	persistMx  sync.Mutex
	lock       *flock.Flock
	persistent bool
}

func Open(file string, opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = sqlitex.DriverCGo
	}
	db, err := sqlitex.NewDBWithDriver(file, opts.Driver)
	if err != nil {
		return nil, fmt.Errorf("sqlitex.new-db %q: %w", file, err)
	}
	s := &Store{
		file:      file,
		db:        db,
		publisher: newChangePublisher(),
	}
	err = s.init()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init: %w", err)
	}
	log.Debugf("localstore: opened %q (driver %s)", file, opts.Driver)
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection 	TEXT NOT NULL,
			id 			TEXT NOT NULL,
			grp 		TEXT NOT NULL,
			updated_on 	TEXT NOT NULL,
			value 		TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_grp ON documents (grp);
	`)
	if err != nil {
		return fmt.Errorf("create table documents: %w", err)
	}
	return nil
}

func (s *Store) File() string {
	return s.file
}

func (s *Store) Close() error {
	s.publisher.Close()
	s.persistMx.Lock()
	if s.lock != nil {
		s.lock.Unlock()
		s.lock = nil
	}
	s.persistMx.Unlock()
	return s.db.Close()
}

// EnablePersistence switches the store to durable commits. It takes a lock file next to the
// database: an exclusive one, or a shared one when tabs are synchronized, so that several
// processes may share the cache.
func (s *Store) EnablePersistence(ctx context.Context, settings store.PersistenceSettings) error {
	s.persistMx.Lock()
	defer s.persistMx.Unlock()
	if s.persistent {
		return nil
	}

	fl := flock.New(s.file + ".lock")
	var locked bool
	var err error
	if settings.SynchronizeTabs {
		locked, err = fl.TryRLock()
	} else {
		locked, err = fl.TryLock()
	}
	if err != nil {
		return store.Errorf(store.CodeInternal, "lock %q: %v", fl.Path(), err)
	}
	if !locked {
		return store.Errorf(store.CodeFailedPrecondition, "persistence lock %q is held by another client", fl.Path())
	}
	_, err = s.db.ExecContext(ctx, `PRAGMA synchronous=FULL;`)
	if err != nil {
		fl.Unlock()
		return store.Errorf(store.CodeInternal, "pragma synchronous: %v", err)
	}
	s.lock = fl
	s.persistent = true
	log.Infof("localstore: persistence enabled on %q (%s)", s.file, settings)
	return nil
}

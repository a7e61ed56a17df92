package repo

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"gorm.io/gorm"
)

// ErrInvalidHandle is returned for handles that cannot name a database file.
var ErrInvalidHandle = errors.New("invalid account handle")

var handleRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidHandle reports whether h can be used as an account handle.
func ValidHandle(h string) bool { return handleRE.MatchString(h) }

// ProfileDBs opens and caches one SQLite profile database per account
// handle under Dir (<Dir>/<handle>.db). It is safe for concurrent use.
type ProfileDBs struct {
	Dir string

	mu  sync.Mutex
	dbs map[string]*gorm.DB
}

// NewProfileDBs returns a cache rooted at dir.
func NewProfileDBs(dir string) *ProfileDBs {
	return &ProfileDBs{Dir: dir, dbs: make(map[string]*gorm.DB)}
}

// Get returns the migrated profile database of handle, opening it on first use.
func (p *ProfileDBs) Get(handle string) (*gorm.DB, error) {
	if !ValidHandle(handle) {
		return nil, ErrInvalidHandle
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if db, ok := p.dbs[handle]; ok {
		return db, nil
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, err
	}
	db, err := openSQLite(filepath.Join(p.Dir, handle+".db"), profileMaxConns)
	if err != nil {
		return nil, err
	}
	if err := MigrateProfiles(db); err != nil {
		closeDB(db)
		return nil, err
	}
	p.dbs[handle] = db
	return db, nil
}

// Close closes every cached database.
func (p *ProfileDBs) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for h, db := range p.dbs {
		closeDB(db)
		delete(p.dbs, h)
	}
}

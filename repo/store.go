package repo

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	golog "github.com/ipfs/go-log"
)

var log = golog.Logger("mapy.repo")

//go:embed seed_profiles.json
var seedProfilesJSON []byte

// FileStore is an on-disk JSON file implementation of the profiles
// document. Writes serialize behind a mutex and a file lock; reads take
// no lock and reopen the file each time, so a concurrent reader may
// observe the pre-write snapshot
type FileStore struct {
	mu    sync.Mutex
	path  string
	flock *flock.Flock
}

// NewFileStore allocates a FileStore rooted at path, materializing the
// embedded seed document on first open
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:  path,
		flock: flock.New(path + ".lock"),
	}
	if err := fs.ensureDataFile(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path gives the location of the profiles document
func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) ensureDataFile() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return err
	}
	if _, err := os.Stat(fs.path); err == nil {
		return nil
	}
	log.Infof("creating profiles document: %s", fs.path)
	return os.WriteFile(fs.path, seedProfilesJSON, 0644)
}

// Read parses the profiles document. It never fails: an unreadable file
// yields the seed document, a malformed one yields an empty store. The
// result is always migrated
func (fs *FileStore) Read() *Store {
	store := &Store{}
	data, err := os.ReadFile(fs.path)
	if err != nil {
		log.Debugf("reading profiles document: %s", err)
		store = seedStore()
	} else if err := json.Unmarshal(data, store); err != nil {
		log.Errorf("parsing profiles document, resetting to empty: %s", err)
		store = &Store{}
	}
	migrate(store)
	return store
}

// Write persists the document as pretty JSON under the writer lock.
// The swap into place is atomic: concurrent readers see either the old
// or the new snapshot, never a partial write
func (fs *FileStore) Write(store *Store) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}

	if err := fs.flock.Lock(); err != nil {
		return err
	}
	defer fs.flock.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return err
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

// migrate upgrades legacy document shapes in place. Profiles written
// before libraries existed get the local sentinel
func migrate(store *Store) {
	for i := range store.Profiles {
		EnsureProfileLibraries(&store.Profiles[i])
	}
}

// EnsureProfileLibraries inserts the reserved local library when a
// profile carries none
func EnsureProfileLibraries(p *Profile) {
	if len(p.Libraries) == 0 {
		p.Libraries = []Library{LocalLibrary()}
	}
}

// LocalLibrary gives the sentinel entry for the in-document library
func LocalLibrary() Library {
	return Library{ID: LocalLibraryID, Name: "Local", Type: "local"}
}

func seedStore() *Store {
	store := &Store{}
	if err := json.Unmarshal(seedProfilesJSON, store); err != nil {
		log.Errorf("parsing embedded seed document: %s", err)
		return &Store{}
	}
	return store
}

// Profile finds a profile by name, returning a pointer into the store
// so callers can mutate it before a Write
func (s *Store) Profile(name string) *Profile {
	for i := range s.Profiles {
		if s.Profiles[i].Name == name {
			return &s.Profiles[i]
		}
	}
	return nil
}

package lockstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/giantswarm/locksmith/pkg/fileutil"
	"github.com/giantswarm/locksmith/pkg/logging"

	"github.com/tidwall/jsonc"
)

const filePerm = 0o644

// Store persists lock records to a single JSON file.
type Store struct {
	path            string
	defaultNickname string

	mu        sync.Mutex
	lastSaved []byte
}

// New returns a Store backed by path. Records without a nickname are given
// defaultNickname when loaded.
func New(path, defaultNickname string) *Store {
	return &Store{path: path, defaultNickname: defaultNickname}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string { return s.path }

// Load reads all records.
//
// A missing file yields an empty set and is created with "{}". Content that
// does not decode to an object of records yields *CorruptStoreError.
// Comments and trailing commas are tolerated since the file is edited by
// hand.
func (s *Store) Load() (Records, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("LockStore", "No store at %s, starting with no targets", s.path)
			if err := s.Save(Records{}); err != nil {
				return Records{}, err
			}
			return Records{}, nil
		}
		return nil, fmt.Errorf("read lock store: %w", err)
	}
	recs, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastSaved = data
	s.mu.Unlock()
	return recs, nil
}

func (s *Store) decode(data []byte) (Records, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Records{}, nil
	}

	var raw map[string]*LockRecord
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, &CorruptStoreError{Path: s.path, Err: err}
	}

	recs := make(Records, len(raw))
	for id, rec := range raw {
		if rec == nil {
			logging.Warn("LockStore", "Ignoring empty record for target %s", id)
			continue
		}
		s.normalize(rec)
		recs[id] = rec
	}
	return recs, nil
}

func (s *Store) normalize(rec *LockRecord) {
	if strings.TrimSpace(rec.Nickname) == "" {
		rec.Nickname = s.defaultNickname
	}
	if rec.NicknameOverrides == nil {
		rec.NicknameOverrides = map[string]string{}
	}
	if rec.ChangeCount < 0 {
		rec.ChangeCount = 0
	}
}

// Save writes all records atomically. Keys are sorted, so saving what was
// loaded reproduces the same bytes.
//
// A file that changed since the store last loaded or saved it is not
// overwritten: Save returns *ExternalEditError carrying the edit, and a
// retry after merging it writes normally.
func (s *Store) Save(recs Records) error {
	if recs == nil {
		recs = Records{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode lock store: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pendingEditLocked(); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(s.path, data, filePerm); err != nil {
		return fmt.Errorf("save lock store: %w", err)
	}
	s.lastSaved = data
	return nil
}

// pendingEditLocked returns *ExternalEditError when the file on disk is not
// what the store last saw. A decodable edit is marked as seen, so the next
// Save goes through.
func (s *Store) pendingEditLocked() error {
	if s.lastSaved == nil {
		return nil
	}
	current, err := os.ReadFile(s.path)
	if err != nil || bytes.Equal(current, s.lastSaved) {
		return nil
	}
	recs, derr := s.decode(current)
	if derr != nil {
		return &ExternalEditError{Path: s.path, Err: derr}
	}
	s.lastSaved = current
	return &ExternalEditError{Path: s.path, Records: recs}
}

// isOwnWrite reports whether data is exactly what this store last saved.
func (s *Store) isOwnWrite(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved != nil && bytes.Equal(s.lastSaved, data)
}

// LoadOrEmpty loads the records, falling back to an empty set when the file
// is corrupt. Other read errors are returned.
func (s *Store) LoadOrEmpty() (Records, error) {
	recs, err := s.Load()
	var corrupt *CorruptStoreError
	if errors.As(err, &corrupt) {
		logging.Error("LockStore", err, "Starting with no targets")
		return Records{}, nil
	}
	return recs, err
}

package twofactor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FilePairingStore persists pairings as a single JSON document, rewritten
// whole on every mutation. Low write volume makes the full rewrite a
// reasonable durability tradeoff, and the write goes through a temp file
// plus rename so a crash mid-save cannot tear the store.
type FilePairingStore struct {
	mu      sync.Mutex
	path    string
	records map[string]PairingRecord
	logger  Logger
}

// NewFilePairingStore loads the store at path. A missing or unreadable file
// reads as an empty store.
func NewFilePairingStore(path string) *FilePairingStore {
	s := &FilePairingStore{
		path:    path,
		records: make(map[string]PairingRecord),
		logger:  defLogger{},
	}
	s.load()
	return s
}

func (s *FilePairingStore) WithLogger(l Logger) *FilePairingStore {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *FilePairingStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("pairing store unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var records []PairingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("pairing store corrupt, starting empty", "path", s.path, "error", err)
		return
	}

	for _, rec := range records {
		rec.Username = NormalizeUsername(rec.Username)
		s.records[rec.Username] = rec
	}
}

// Load implements PairingStore.
func (s *FilePairingStore) Load(ctx context.Context) ([]PairingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Find implements PairingStore.
func (s *FilePairingStore) Find(ctx context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[NormalizeUsername(username)]
	if !ok {
		return "", nil
	}
	return rec.AccountID, nil
}

// Upsert implements PairingStore.
func (s *FilePairingStore) Upsert(ctx context.Context, username, accountID string) error {
	key := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[key]
	s.records[key] = PairingRecord{Username: key, AccountID: accountID}

	if err := s.persist(); err != nil {
		if existed {
			s.records[key] = prev
		} else {
			delete(s.records, key)
		}
		return WrapPersistence(err, "failed to persist pairing store")
	}

	return nil
}

// Clear implements PairingStore. The record is kept with a blank account id.
func (s *FilePairingStore) Clear(ctx context.Context, username string) error {
	key := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[key]
	if !existed {
		return nil
	}

	s.records[key] = PairingRecord{Username: key, AccountID: ""}

	if err := s.persist(); err != nil {
		s.records[key] = prev
		return WrapPersistence(err, "failed to persist pairing store")
	}

	return nil
}

// persist rewrites the whole store. Callers hold s.mu.
func (s *FilePairingStore) persist() error {
	records := s.snapshot()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".pairings-*.json")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return nil
}

// snapshot returns records in stable order. Callers hold s.mu.
func (s *FilePairingStore) snapshot() []PairingRecord {
	records := make([]PairingRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Username < records[j].Username
	})

	return records
}

var _ PairingStore = (*FilePairingStore)(nil)

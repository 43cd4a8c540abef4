package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store persists session records. Save is atomic per session: a reader never
// observes a partially written record. Writers for the same session id are
// serialized; independent sessions do not contend.
type Store interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id uuid.UUID) (*Session, error)
	List(ctx context.Context) ([]Metadata, error)
}

type fileStore struct {
	dir   string
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewFileStore creates a Store that writes one self-describing JSON record
// per session id under dir. The directory is created if absent.
func NewFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &fileStore{
		dir:   dir,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}, nil
}

// lock returns the per-session mutex, creating it on first use.
func (s *fileStore) lock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *fileStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

// Save writes the session to a temporary file in the same directory and
// renames it over the target, so a concurrent Load sees either the prior
// committed record or the new one, never a torn write.
func (s *fileStore) Save(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.lock(session.ID)
	l.Lock()
	defer l.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, session.ID.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session %s: %w", session.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(session.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish session %s: %w", session.ID, err)
	}

	return nil
}

func (s *fileStore) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	return &session, nil
}

// List returns session metadata ordered by creation time descending.
// Files that fail to decode are skipped rather than failing the listing.
func (s *fileStore) List(ctx context.Context) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	metas := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		session, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		metas = append(metas, session.Meta())
	}

	sortMetadata(metas)
	return metas, nil
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemoryStore creates an in-memory Store for tests and ephemeral runs.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *memoryStore) Save(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// deep copy through JSON so the caller's working copy stays independent
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	var stored Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode session %s: %w", session.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &stored
	return nil
}

func (s *memoryStore) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	stored, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", id, err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *memoryStore) List(ctx context.Context) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]Metadata, 0, len(s.sessions))
	for _, session := range s.sessions {
		metas = append(metas, session.Meta())
	}

	sortMetadata(metas)
	return metas, nil
}

func sortMetadata(metas []Metadata) {
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].ID.String() > metas[j].ID.String()
		}
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
}

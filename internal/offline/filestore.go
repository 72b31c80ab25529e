package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every order in memory and rewrites a JSON snapshot after
// each mutation. The snapshot is replaced atomically (temp file + rename) so a
// crash mid-write leaves the previous snapshot intact.
type FileStore struct {
	path string

	mu     sync.Mutex
	orders map[string]Order
}

type fileSnapshot struct {
	Orders []Order `json:"orders"`
}

func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, orders: map[string]Order{}}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var snap fileSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, o := range snap.Orders {
		s.orders[o.ID] = o
	}
	return s, nil
}

func (s *FileStore) Put(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.orders[o.ID]
	s.orders[o.ID] = o
	if err := s.persist(); err != nil {
		if had {
			s.orders[o.ID] = prev
		} else {
			delete(s.orders, o.ID)
		}
		return err
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok, nil
}

func (s *FileStore) List(_ context.Context, status Status) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *FileStore) persist() error {
	snap := fileSnapshot{Orders: make([]Order, 0, len(s.orders))}
	for _, o := range s.orders {
		snap.Orders = append(snap.Orders, o)
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type key struct{ name, competition string }

// memStore is an in-memory MappingStore for unit tests.
type memStore struct {
	mu      sync.Mutex
	matches map[key]string
	teams   map[key]string
	puts    int
	failGet bool
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{matches: map[key]string{}, teams: map[key]string{}}
}

func (m *memStore) GetMatchMapping(_ context.Context, noisy, competition string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, eris.New("store down")
	}
	v, ok := m.matches[key{noisy, competition}]
	return v, ok, nil
}

func (m *memStore) PutMatchMapping(_ context.Context, noisy, clean, competition string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return eris.New("store down")
	}
	m.puts++
	m.matches[key{noisy, competition}] = clean
	return nil
}

func (m *memStore) GetTeamMapping(_ context.Context, noisy, competition string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, eris.New("store down")
	}
	v, ok := m.teams[key{noisy, competition}]
	return v, ok, nil
}

func (m *memStore) PutTeamMapping(_ context.Context, noisy, clean, competition string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return eris.New("store down")
	}
	m.puts++
	m.teams[key{noisy, competition}] = clean
	return nil
}

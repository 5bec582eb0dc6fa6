package repositories

import (
	"context"
	"sync"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/pkg/errors"
)

// RelayRepository is the registry's append-only list of relay registrations.
// It neither deduplicates nor authenticates entries.
type RelayRepository interface {
	Append(ctx context.Context, relay onion.RelayDescriptor) error
	List(ctx context.Context) ([]onion.RelayDescriptor, error)
	Close() error
}

// OpenRelayRepository opens the backend named in cfg.
func OpenRelayRepository(cfg config.Registry) (RelayRepository, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryRelayRepository(), nil
	case "bolt":
		return OpenBoltRelayRepository(cfg.Path)
	case "postgres":
		return OpenPostgresRelayRepository(cfg.DSN)
	default:
		return nil, errors.Errorf("unknown registry backend %q", cfg.Backend)
	}
}

// MemoryRelayRepository keeps registrations in insertion order for the life of the process.
type MemoryRelayRepository struct {
	mu    sync.RWMutex
	nodes *arraylist.List
}

func NewMemoryRelayRepository() *MemoryRelayRepository {
	return &MemoryRelayRepository{nodes: arraylist.New()}
}

func (s *MemoryRelayRepository) Append(_ context.Context, relay onion.RelayDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes.Add(relay)
	return nil
}

func (s *MemoryRelayRepository) List(_ context.Context) ([]onion.RelayDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]onion.RelayDescriptor, 0, s.nodes.Size())
	it := s.nodes.Iterator()
	for it.Next() {
		out = append(out, it.Value().(onion.RelayDescriptor))
	}
	return out, nil
}

func (s *MemoryRelayRepository) Close() error {
	return nil
}

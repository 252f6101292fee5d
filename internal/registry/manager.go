package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kozaktomas/light-recon/internal/logging"
)

// Manager owns the current registry and replaces it wholesale on Rebuild.
type Manager struct {
	builder *Builder
	logger  *slog.Logger

	mu      sync.RWMutex
	current *Registry
	stats   BuildStats
	builtAt time.Time
}

// NewManager starts with an empty registry; call Rebuild to load the dataset.
func NewManager(b *Builder, logger *slog.Logger) *Manager {
	return &Manager{
		builder: b,
		logger:  logging.OrDefault(logger),
		current: New(b.Config),
	}
}

// Rebuild rescans the whole dataset and swaps the result in. The previous
// registry stays active when the build fails.
func (m *Manager) Rebuild(ctx context.Context) error {
	reg, stats, err := m.builder.Build(ctx)
	if err != nil {
		m.logger.Error("registry rebuild failed", "error", err)
		return err
	}

	m.mu.Lock()
	m.current = reg
	m.stats = stats
	m.builtAt = time.Now()
	m.mu.Unlock()
	return nil
}

// Current returns the active registry.
func (m *Manager) Current() *Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Query resolves vec against the active registry.
func (m *Manager) Query(vec []float32) MatchResult {
	return m.Current().Query(vec)
}

// Stats returns the statistics of the last successful build and when it finished.
func (m *Manager) Stats() (BuildStats, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats, m.builtAt
}

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
)

var _ interfaces.ITradePublisher = (*MultiPublisher)(nil)

// MultiPublisher fans a trade out to every registered publisher.
type MultiPublisher struct {
	Publishers map[string]interfaces.ITradePublisher
	Logger     *logger.Logger
	mu         sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiPublisher(log *logger.Logger) *MultiPublisher {
	return &MultiPublisher{
		Publishers: make(map[string]interfaces.ITradePublisher),
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Add registers a publisher under a unique name.
func (m *MultiPublisher) Add(name string, p interfaces.ITradePublisher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Publishers[name]; exists {
		return fmt.Errorf("publisher %s already exists", name)
	}
	m.Publishers[name] = p
	m.Logger.Info("Added trade publisher: %s", name)
	return nil
}

// Remove closes and drops a publisher.
func (m *MultiPublisher) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.Publishers[name]
	if !exists {
		return fmt.Errorf("publisher %s not found", name)
	}
	if err := p.Close(); err != nil {
		m.Logger.Error("Error closing publisher %s: %v", name, err)
	}
	delete(m.Publishers, name)
	m.Logger.Info("Removed trade publisher: %s", name)
	return nil
}

// Names lists the registered publishers.
func (m *MultiPublisher) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.Publishers))
	for name := range m.Publishers {
		names = append(names, name)
	}
	return names
}

// -----------------------------------------------------------------------------

// Publish delivers to every publisher; one failing does not stop the others.
func (m *MultiPublisher) Publish(ctx context.Context, txn models.MTransaction) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for name, p := range m.Publishers {
		if err := p.Publish(ctx, txn); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, p := range m.Publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	m.Publishers = make(map[string]interfaces.ITradePublisher)
	return errors.Join(errs...)
}

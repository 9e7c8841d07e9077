package worker

import (
	"context"
	"fmt"

	"github.com/squadlab/posrating/internal/dispatcher"
)

// RegisterHandlers registers the persist handler with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// storage writes are buffered; a full queue makes the caller wait
	d.Register(CommandPersist, m.handlePersist,
		dispatcher.Buffered(m.deps.BufferSize), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) handlePersist(ctx context.Context, e dispatcher.Event) (any, error) {
	job, ok := e.Payload.(Job)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrBadPayload, e.Payload)
	}
	if err := m.persist(ctx, job); err != nil {
		return nil, err
	}
	return nil, nil
}

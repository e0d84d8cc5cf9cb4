package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
)

// keyLocker bloqueos exclusivos por nombre. Cada slot es un canal de capacidad 1:
// enviar adquiere, recibir libera. Permite esperar con timeout y cancelación.
type keyLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyLocker() *keyLocker {
	return &keyLocker{slots: make(map[string]chan struct{})}
}

func (l *keyLocker) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[name] = ch
	}
	return ch
}

// acquire espera el bloqueo hasta timeout; vencido devuelve domain.ErrBusy.
func (l *keyLocker) acquire(ctx context.Context, name string, timeout time.Duration) error {
	ch := l.slot(name)
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return &domain.MovementError{Kind: domain.ErrBusy, Reason: "tiempo de espera agotado para " + name}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *keyLocker) release(name string) {
	<-l.slot(name)
}

package billing

import (
	"context"
	"sync"
)

// keyedLocker exclusión mutua por clave (cuenta, o cuenta + punto de venta + tipo).
// Cada clave es un semáforo de capacidad 1 para poder abandonar la espera con el contexto.
type keyedLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{slots: make(map[string]chan struct{})}
}

func (k *keyedLocker) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		k.slots[key] = s
	}
	return s
}

// Lock bloquea la clave y devuelve la función que la libera.
func (k *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	s := k.slot(key)
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrClosed = errors.New("resource closed")

// Lazy es una celda de inicializacion perezosa: un solo intento en vuelo a la
// vez, compartido por todos los llamadores concurrentes. Un fallo no se
// cachea; el siguiente Get vuelve a intentar.
type Lazy[T any] struct {
	init    func(ctx context.Context) (T, error)
	release func(T)
	timeout time.Duration

	mu     sync.RWMutex
	value  T
	ready  bool
	closed bool
	group  singleflight.Group
}

// NewLazy crea la celda. release puede ser nil.
func NewLazy[T any](init func(ctx context.Context) (T, error), release func(T), timeout time.Duration) *Lazy[T] {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Lazy[T]{
		init:    init,
		release: release,
		timeout: timeout,
	}
}

func (l *Lazy[T]) current() (T, bool, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.ready, l.closed
}

// Get devuelve el recurso, inicializandolo si hace falta.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if v, ready, closed := l.current(); ready {
		return v, nil
	} else if closed {
		return zero, ErrClosed
	}

	ch := l.group.DoChan("init", func() (any, error) {
		if v, ready, _ := l.current(); ready {
			return v, nil
		}
		// Init compartido: no se cancela con el primer caller.
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		v, err := l.init(initCtx)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			if l.release != nil {
				l.release(v)
			}
			return nil, ErrClosed
		}
		l.value = v
		l.ready = true
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Close libera el recurso si fue inicializado. Llamadas posteriores a Get
// devuelven ErrClosed.
func (l *Lazy[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready && l.release != nil {
		l.release(l.value)
	}
	var zero T
	l.value = zero
	l.ready = false
	l.closed = true
}

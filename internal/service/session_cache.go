package service

import (
	"context"
	"sync"

	"dev-event/internal/domain"
)

type sessionCacheKey struct{}

type sessionCell struct {
	mu      sync.Mutex
	loaded  bool
	session domain.Session
	ok      bool
}

// WithSessionCache instala una celda de sesion en el contexto del request.
// La celda vive y muere con ese contexto.
func WithSessionCache(ctx context.Context) context.Context {
	if _, ok := ctx.Value(sessionCacheKey{}).(*sessionCell); ok {
		return ctx
	}
	return context.WithValue(ctx, sessionCacheKey{}, &sessionCell{})
}

// CurrentSession es GetSession memoizado por request. Sin celda en el
// contexto, resuelve cada vez.
func (s *SessionService) CurrentSession(ctx context.Context, tr TokenTransport) (domain.Session, bool) {
	cell, ok := ctx.Value(sessionCacheKey{}).(*sessionCell)
	if !ok {
		return s.GetSession(ctx, tr)
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if !cell.loaded {
		cell.session, cell.ok = s.GetSession(ctx, tr)
		cell.loaded = true
	}
	return cell.session, cell.ok
}

// resetSessionCache descarta lo memoizado cuando el request cambia la sesion.
func resetSessionCache(ctx context.Context) {
	cell, ok := ctx.Value(sessionCacheKey{}).(*sessionCell)
	if !ok {
		return
	}
	cell.mu.Lock()
	cell.loaded = false
	cell.session = domain.Session{}
	cell.ok = false
	cell.mu.Unlock()
}

package main

import (
	"context"
	"sync"

	"spotifydlp/internal/spotify"
)

// lazySession opens the real session on the first token request, so nothing touches the
// network before the invocation has been validated. A failed open is not retried.
type lazySession struct {
	open    func(ctx context.Context) (spotify.TokenProvider, error)
	once    sync.Once
	session spotify.TokenProvider
	err     error
}

func newLazySession(open func(ctx context.Context) (spotify.TokenProvider, error)) *lazySession {
	return &lazySession{open: open}
}

func (l *lazySession) Token(ctx context.Context) (string, error) {
	l.once.Do(func() {
		l.session, l.err = l.open(ctx)
	})
	if l.err != nil {
		return "", l.err
	}
	return l.session.Token(ctx)
}

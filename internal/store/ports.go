// Package store defines where account documents live.
package store

import (
	"context"

	"github.com/omrishi123/tractortrack/internal/core"
)

// Ports for document storage adapters.
type (
	// DocumentStore persists one AppData document per user. Save always
	// writes the whole document.
	DocumentStore interface {
		// Load returns the stored document. found is false when the user
		// has never been saved.
		Load(ctx context.Context, userID string) (doc core.AppData, found bool, err error)
		Save(ctx context.Context, userID string, doc core.AppData) error
	}

	// Subscriber is implemented by stores that can push documents written
	// elsewhere. Subscribe returns once the subscription is active; fn is
	// then called from a store goroutine until ctx is done.
	Subscriber interface {
		Subscribe(ctx context.Context, userID string, fn func(core.AppData)) error
	}

	// Closer is implemented by stores holding connections.
	Closer interface {
		Close() error
	}

	// Pinger is implemented by stores that can report reachability.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

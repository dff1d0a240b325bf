package interfaces

import (
	"context"

	"price-stream/src/models"
)

// -----------------------------------------------------------------------------
// IPriceStream is the capability contract over a live tick source, implemented
// interchangeably by the mock and live backends. One instance per symbol
// selection; instances are never reused across selections.
// -----------------------------------------------------------------------------

type IPriceStream interface {

	// -----------------------------------------------------------------------------

	// Connect establishes the transport. Idempotent: a call while already
	// connected or connecting resolves with the outcome of the existing
	// attempt. Failure is non-fatal to the host; callers may retry. No
	// automatic retry is built in.
	Connect(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Subscribe adds symbols to the subscription set. If the transport is not
	// open yet, entries are buffered and flushed exactly once, in original
	// order, as a single batched message right after the connection opens.
	Subscribe(symbols []string)

	// -----------------------------------------------------------------------------

	// Unsubscribe removes symbols from the subscription set. Sends an
	// outbound message immediately when connected, otherwise a silent no-op.
	Unsubscribe(symbols []string)

	// -----------------------------------------------------------------------------

	// OnTick registers a listener. Multiple listeners are supported; there is
	// no unregister-by-handle, Close removes them all.
	OnTick(cb func(models.MTick))

	// -----------------------------------------------------------------------------

	// Close terminates the transport, clears the subscription set, the
	// pending queue and all listeners. Safe to call multiple times and from
	// within a tick callback.
	Close()
}

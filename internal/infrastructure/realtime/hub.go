package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Raniaaloun/chat-app/internal/api/metrics"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
)

// PresenceMirror reflects coarse online/offline state into an external store
// (Redis) so request handlers can report last-seen without touching the hub.
// Mirror failures are logged and never affect delivery decisions.
type PresenceMirror interface {
	SetOnline(ctx context.Context, accountID string) error
	SetOffline(ctx context.Context, accountID string) error
}

// Hub is the presence registry: it maps account ids to their set of open
// connections and fans events out to all of them. An account may hold any
// number of simultaneous connections; it counts as online while at least one
// remains. The hub is shared across every connection handler goroutine.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[string]*Connection // accountID -> connID -> connection

	mirror PresenceMirror // optional
	logger zerolog.Logger
}

var _ ports.Notifier = (*Hub)(nil)

// NewHub constructs an empty Hub. mirror may be nil.
func NewHub(mirror PresenceMirror, logger zerolog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]map[string]*Connection),
		mirror: mirror,
		logger: logger,
	}
}

// Register adds a connection to the account's live set and starts its write
// loop. The mirror is updated outside the lock when the account transitions
// offline→online.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	set := h.conns[conn.UserID]
	first := len(set) == 0
	if set == nil {
		set = make(map[string]*Connection)
		h.conns[conn.UserID] = set
	}
	set[conn.ID] = conn
	h.mu.Unlock()

	conn.Start()
	metrics.WSConnections.Inc()

	if first && h.mirror != nil {
		if err := h.mirror.SetOnline(context.Background(), conn.UserID); err != nil {
			h.logger.Warn().Err(err).Str("account_id", conn.UserID).Msg("presence mirror set-online failed")
		}
	}
}

// Unregister removes a connection; the account goes offline when its set
// empties. Safe to call for connections that were never registered.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	set, ok := h.conns[conn.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, tracked := set[conn.ID]; !tracked {
		h.mu.Unlock()
		return
	}
	delete(set, conn.ID)
	last := len(set) == 0
	if last {
		delete(h.conns, conn.UserID)
	}
	h.mu.Unlock()

	metrics.WSConnections.Dec()

	if last && h.mirror != nil {
		if err := h.mirror.SetOffline(context.Background(), conn.UserID); err != nil {
			h.logger.Warn().Err(err).Str("account_id", conn.UserID).Msg("presence mirror set-offline failed")
		}
	}
}

// IsOnline reports whether the account has at least one open connection.
func (h *Hub) IsOnline(accountID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[accountID]) > 0
}

// HandlesFor returns a snapshot of the account's open connections.
func (h *Hub) HandlesFor(accountID string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.conns[accountID]
	if len(set) == 0 {
		return nil
	}
	handles := make([]*Connection, 0, len(set))
	for _, conn := range set {
		handles = append(handles, conn)
	}
	return handles
}

// Publish encodes the event once and enqueues it on every connection the
// account holds. Offline accounts are a silent no-op. The registry lock is
// released before any enqueue.
func (h *Hub) Publish(accountID string, event ports.Event) {
	handles := h.HandlesFor(accountID)
	if len(handles) == 0 {
		return
	}

	payload, err := EncodeEvent(event)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to encode event")
		return
	}

	for _, conn := range handles {
		if err := conn.Send(payload); err != nil {
			h.logger.Debug().Str("conn_id", conn.ID).Str("account_id", accountID).Msg("dropped frame for closed connection")
		}
	}
}

// Close terminates every tracked connection and clears the registry.
func (h *Hub) Close() {
	h.mu.Lock()
	all := make([]*Connection, 0)
	for _, set := range h.conns {
		for _, conn := range set {
			all = append(all, conn)
		}
	}
	h.conns = make(map[string]map[string]*Connection)
	h.mu.Unlock()

	for _, conn := range all {
		conn.Close(1001, "server shutting down")
		metrics.WSConnections.Dec()
	}
}

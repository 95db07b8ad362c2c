package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"log"
	"net/http"
	"sync"
	"time"

	"parley/internal/event"
	"parley/internal/model"
	"parley/internal/presence"

	"github.com/gorilla/websocket"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type clientBucket struct {
	sync.RWMutex
	groups map[string]map[string]*Client
}

// Hub owns every live connection, bucketed into per-user groups: one group
// per user id, one entry per open connection of that user.
type Hub struct {
	shards     [shardCount]*clientBucket
	register   chan *Client
	unregister chan *Client
	engine     *Engine
	presence   presence.Tracker
	startedAt  time.Time
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewHub(engine *Engine, tracker presence.Tracker) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		engine:     engine,
		presence:   tracker,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			groups: make(map[string]map[string]*Client),
		}
	}

	engine.SetBroadcaster(h)

	// run manager loop
	h.wg.Add(1)
	go h.run()

	return h
}

// Publish delivers an event to every live connection of the given user, but
// only while the presence counter reports the user online. Offline users
// are skipped silently; undelivered real-time events are lost by design.
func (h *Hub) Publish(ctx context.Context, userID string, ev event.ChatEvent) {
	if !h.presence.IsOnline(ctx, userID) {
		return
	}

	sh := getShard(userID)
	b := h.shards[sh]

	// collect clients while holding RLock
	b.RLock()
	group, ok := b.groups[userID]
	if !ok || len(group) == 0 {
		b.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(group))
	for _, c := range group {
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver to clients without holding lock
	for _, c := range clients {
		select {
		case <-c.ctx.Done():
			// session closing, event dropped
			continue
		default:
		}

		select {
		case c.egress <- ev:
			// enqueued
		case <-c.ctx.Done():
			// session closed mid-wait
		case <-time.After(sendTimeout):
			// egress full -> apply policy
			log.Printf("egress full for client %s of user %s", c.ID, userID)
			if kickOnFull {
				h.unregister <- c
			}
		}
	}
}

func getShard(userID string) uint32 {
	if userID == "" {
		return 0
	}

	h := sha1.Sum([]byte(userID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) addClient(c *Client) {
	sh := getShard(c.user.UserID)
	b := h.shards[sh]
	b.Lock()

	group, ok := b.groups[c.user.UserID]
	if !ok {
		group = make(map[string]*Client)
		b.groups[c.user.UserID] = group
	}
	group[c.ID] = c
	b.Unlock()

	ctx, cancel := context.WithTimeout(h.ctx, presenceTimeout)
	count := h.presence.Increment(ctx, c.user.UserID)
	cancel()

	log.Printf("client %s registered for user %s (connections: %d, shard %d)",
		c.ID, c.user.UserID, count, sh)
}

func (h *Hub) removeClient(c *Client) {
	sh := getShard(c.user.UserID)
	b := h.shards[sh]
	b.Lock()

	removed := false
	if group, ok := b.groups[c.user.UserID]; ok {
		if _, exists := group[c.ID]; exists {
			delete(group, c.ID)
			removed = true
		}
		if len(group) == 0 {
			delete(b.groups, c.user.UserID)
		}
	}
	b.Unlock()

	if !removed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	count := h.presence.Decrement(ctx, c.user.UserID)
	cancel()

	c.Close()
	log.Printf("client %s removed for user %s (connections: %d, shard %d)",
		c.ID, c.user.UserID, count, sh)
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// Stop closes every client connection and halts the manager loop.
func (h *Hub) Stop() {
	h.cancel()

	for _, shard := range h.shards {
		shard.RLock()
		for _, group := range shard.groups {
			for _, client := range group {
				client.Close()
			}
		}
		shard.RUnlock()
	}

	h.wg.Wait()
}

var (
	websocketUpgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
		Subprotocols:    nil, // negotiated per-request, see ServeWS
	}
)

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	switch origin {
	case "", "http://localhost:4200":
		return true
	default:
		return false
	}
}

// ServeWS upgrades the connection, echoing back the credential subprotocol
// the client offered. A nil user means identity resolution failed: the
// connection is accepted and then immediately dropped.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, user *model.User) {
	up := websocketUpgrader
	if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
		up.Subprotocols = protocols[:1]
	}

	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	if user == nil {
		log.Printf("anonymous connection dropped")
		_ = conn.Close()
		return
	}

	RegisterClient(user, conn, h)
}

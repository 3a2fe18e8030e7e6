package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Registry maps group names to their live member connections. A group exists
// while it has members; the last leave discards it.
//
// A single mutex guards the group map and is held across the enqueue loop of
// a broadcast, so joins, leaves, and broadcasts on the same group are
// linearizable and every member observes broadcasts in invocation order.
// Delivery itself never blocks: each member gets a non-blocking enqueue into
// its bounded outbound queue.
type Registry struct {
	mu     sync.Mutex
	groups map[string]map[*Client]struct{}
	log    *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		groups: make(map[string]map[*Client]struct{}),
		log:    log,
	}
}

// Join adds a connection to a group, creating the group on first join.
func (r *Registry) Join(group string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.groups[group] == nil {
		r.groups[group] = make(map[*Client]struct{})
	}
	r.groups[group][c] = struct{}{}
}

// Leave removes a connection from a group. Unknown group or member is a
// no-op.
func (r *Registry) Leave(group string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
}

// Broadcast delivers payload to every current member of the group except
// exclude (which may be nil). Members whose queue overflows are dropped from
// the group.
func (r *Registry) Broadcast(group string, payload any, exclude *Client) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("marshal broadcast payload", zap.String("group", group), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		return
	}
	for c := range members {
		if c == exclude {
			continue
		}
		if !c.Queue(data) {
			delete(members, c)
		}
	}
	if len(members) == 0 {
		delete(r.groups, group)
	}
}

// Size reports the current member count of a group.
func (r *Registry) Size(group string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups[group])
}

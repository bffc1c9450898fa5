package queue

import (
	"classroom/take-a-number/queue-server/pkg/infra"
	"sort"
	"time"

	"github.com/emirpasic/gods/maps/hashmap"
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Reason set by the sweep. Focus changes reported by the client carry an
// empty reason.
const ReasonDisconnected = "Disconnected"

type LostFocusEntry struct {
	Identity Identity
	Number   *int
	Reason   string
}

// Presence tracks heartbeats and the set of students believed away.
// A student can be away and still hold a ticket; nothing here touches
// the ledger.
type Presence struct {
	// Key value: identity -> last heartbeat time.
	heartbeats *hashmap.Map

	// Kept in insertion order so the teacher sees students in the
	// order they went away. Key value: identity -> *LostFocusEntry.
	lostFocus *linkedhashmap.Map

	timeout time.Duration
	clock   infra.Clock
}

func NewPresence(timeout time.Duration, clock infra.Clock) *Presence {
	return &Presence{
		heartbeats: hashmap.New(),
		lostFocus:  linkedhashmap.New(),
		timeout:    timeout,
		clock:      clock,
	}
}

// Beat records a heartbeat and clears any lost-focus entry.
func (p *Presence) Beat(identity Identity) {
	p.heartbeats.Put(identity, p.clock.Now())
	p.lostFocus.Remove(identity)
}

// MarkLost flags identity as away unless it already is. Returns true if
// an entry was added.
func (p *Presence) MarkLost(identity Identity, number *int, reason string) bool {
	if _, ok := p.lostFocus.Get(identity); ok {
		return false
	}
	p.lostFocus.Put(identity, &LostFocusEntry{
		Identity: identity,
		Number:   number,
		Reason:   reason,
	})
	return true
}

// Regain removes the lost-focus entry of identity. Returns true if there
// was one.
func (p *Presence) Regain(identity Identity) bool {
	if _, ok := p.lostFocus.Get(identity); !ok {
		return false
	}
	p.lostFocus.Remove(identity)
	return true
}

// Forget drops everything known about identity.
func (p *Presence) Forget(identity Identity) {
	p.heartbeats.Remove(identity)
	p.lostFocus.Remove(identity)
}

func (p *Presence) IsLost(identity Identity) bool {
	_, ok := p.lostFocus.Get(identity)
	return ok
}

// Sweep flags every student whose last heartbeat is older than the
// timeout. It only ever adds entries. numberOf supplies the ticket
// number recorded in the new entry.
func (p *Presence) Sweep(numberOf func(Identity) *int) []Identity {
	now := p.clock.Now()

	var stale []Identity
	for _, key := range p.heartbeats.Keys() {
		identity := key.(Identity)
		lastSeen, _ := p.LastSeen(identity)
		if now.Sub(lastSeen) > p.timeout && !p.IsLost(identity) {
			stale = append(stale, identity)
		}
	}

	// Longest silent first, so the entry order does not depend on map
	// iteration.
	sort.Slice(stale, func(i, j int) bool {
		a, _ := p.LastSeen(stale[i])
		b, _ := p.LastSeen(stale[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		return stale[i] < stale[j]
	})

	for _, identity := range stale {
		p.MarkLost(identity, numberOf(identity), ReasonDisconnected)
	}
	return stale
}

// LostFocus returns the entries in the order they were added.
func (p *Presence) LostFocus() []*LostFocusEntry {
	entries := make([]*LostFocusEntry, 0, p.lostFocus.Size())
	it := p.lostFocus.Iterator()
	for it.Next() {
		entries = append(entries, it.Value().(*LostFocusEntry))
	}
	return entries
}

func (p *Presence) LastSeen(identity Identity) (time.Time, bool) {
	value, ok := p.heartbeats.Get(identity)
	if !ok {
		return time.Time{}, false
	}
	return value.(time.Time), true
}

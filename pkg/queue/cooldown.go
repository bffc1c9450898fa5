package queue

import (
	"classroom/take-a-number/queue-server/pkg/infra"
	"time"

	"github.com/emirpasic/gods/maps/hashmap"
)

// Cooldowns records, per student, the time after which a new ticket may
// be requested. Expired entries are dropped lazily by Check. Key value:
// identity -> expiresAt.
type Cooldowns struct {
	entries *hashmap.Map
	clock   infra.Clock
}

func NewCooldowns(clock infra.Clock) *Cooldowns {
	return &Cooldowns{
		entries: hashmap.New(),
		clock:   clock,
	}
}

// Set overwrites any existing cooldown for identity.
func (c *Cooldowns) Set(identity Identity, duration time.Duration) {
	c.entries.Put(identity, c.clock.Now().Add(duration))
}

// Check returns the remaining cooldown and true while it is running.
func (c *Cooldowns) Check(identity Identity) (time.Duration, bool) {
	value, ok := c.entries.Get(identity)
	if !ok {
		return 0, false
	}

	remaining := value.(time.Time).Sub(c.clock.Now())
	if remaining <= 0 {
		c.entries.Remove(identity)
		return 0, false
	}
	return remaining, true
}

func (c *Cooldowns) Size() int {
	return c.entries.Size()
}

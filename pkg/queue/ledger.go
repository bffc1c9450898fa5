package queue

import (
	"classroom/take-a-number/queue-server/pkg/infra"
	"time"

	"github.com/emirpasic/gods/maps/hashmap"
	"github.com/emirpasic/gods/maps/treemap"
	"go.uber.org/zap"
)

// Ledger holds the tickets, the number counter and the serving pointer.
// Not safe for concurrent use; Queue serializes every call.
type Ledger struct {
	// Key value: identity -> ticket.
	byIdentity *hashmap.Map

	// Same tickets ordered by number, so the waiting list and the
	// served ticket are found without scanning. Key value: number ->
	// ticket.
	byNumber *treemap.Map

	stats     *Stats
	cooldowns *Cooldowns
	cooldown  time.Duration
	clock     infra.Clock

	logger *zap.SugaredLogger
}

func NewLedger(stats *Stats, cooldowns *Cooldowns, cooldown time.Duration, clock infra.Clock, logger *zap.SugaredLogger) *Ledger {
	return &Ledger{
		byIdentity: hashmap.New(),
		byNumber:   treemap.NewWithIntComparator(),
		stats:      stats,
		cooldowns:  cooldowns,
		cooldown:   cooldown,
		clock:      clock,
		logger:     logger,
	}
}

// Issue hands the next number to identity.
func (l *Ledger) Issue(identity Identity) (*Ticket, error) {
	if _, ok := l.byIdentity.Get(identity); ok {
		return nil, ErrAlreadyQueued
	}

	if remaining, active := l.cooldowns.Check(identity); active {
		return nil, &CooldownError{Remaining: remaining}
	}

	ticket := &Ticket{
		Identity: identity,
		Number:   l.stats.incrLastNumber(),
		IssuedAt: l.clock.Now(),
	}
	l.put(ticket)

	l.logger.Infof("issued ticket[%+v]", ticket)
	return ticket, nil
}

// Remove drops the ticket of identity and starts its cooldown.
func (l *Ledger) Remove(identity Identity) (*Ticket, error) {
	ticket, ok := l.Get(identity)
	if !ok {
		return nil, ErrNotQueued
	}

	l.pop(ticket)
	l.cooldowns.Set(identity, l.cooldown)

	l.logger.Infof("removed ticket[%+v] cooldown[%v]", ticket, l.cooldown)
	return ticket, nil
}

// Discard drops the ticket of identity without a cooldown. Used on
// logout. Returns false when there was no ticket.
func (l *Ledger) Discard(identity Identity) bool {
	ticket, ok := l.Get(identity)
	if !ok {
		return false
	}
	l.pop(ticket)
	l.logger.Infof("discarded ticket[%+v]", ticket)
	return true
}

// Advance moves the serving pointer by one. The ticket numbered with the
// old pointer is purged first, so the ticket now being served stays in
// the ledger until the following Advance.
func (l *Ledger) Advance() error {
	if !l.stats.hasWaiting() {
		return ErrQueueEmpty
	}

	if l.stats.CurrentNumber > 0 {
		if served, ok := l.byNumber.Get(l.stats.CurrentNumber); ok {
			l.pop(served.(*Ticket))
			l.logger.Debugf("purged served ticket[%+v]", served)
		}
	}

	l.stats.incrCurrentNumber()

	if ticket, ok := l.Serving(); ok {
		l.stats.updateAvgWait(l.clock.Now().Sub(ticket.IssuedAt))
	}

	l.logger.Infof("advanced currentNumber[%v] lastNumber[%v]", l.stats.CurrentNumber, l.stats.LastNumber)
	return nil
}

// Position returns how many numbers are ahead of identity, and false
// when identity holds no ticket.
func (l *Ledger) Position(identity Identity) (int, bool) {
	ticket, ok := l.Get(identity)
	if !ok {
		return 0, false
	}
	return ticket.Position(l.stats.CurrentNumber), true
}

// Waiting returns tickets with a number above the serving pointer in
// ascending order.
func (l *Ledger) Waiting() []*Ticket {
	tickets := make([]*Ticket, 0, l.byNumber.Size())
	it := l.byNumber.Iterator()
	for it.Next() {
		if it.Key().(int) <= l.stats.CurrentNumber {
			continue
		}
		tickets = append(tickets, it.Value().(*Ticket))
	}
	return tickets
}

// Serving returns the ticket matching the serving pointer, if it is
// still in the ledger.
func (l *Ledger) Serving() (*Ticket, bool) {
	if l.stats.CurrentNumber <= 0 {
		return nil, false
	}
	value, ok := l.byNumber.Get(l.stats.CurrentNumber)
	if !ok {
		return nil, false
	}
	return value.(*Ticket), true
}

func (l *Ledger) Get(identity Identity) (*Ticket, bool) {
	value, ok := l.byIdentity.Get(identity)
	if !ok {
		return nil, false
	}
	return value.(*Ticket), true
}

// NumberOf returns the ticket number of identity, or nil.
func (l *Ledger) NumberOf(identity Identity) *int {
	ticket, ok := l.Get(identity)
	if !ok {
		return nil
	}
	number := ticket.Number
	return &number
}

func (l *Ledger) Size() int {
	return l.byIdentity.Size()
}

func (l *Ledger) put(ticket *Ticket) {
	l.byIdentity.Put(ticket.Identity, ticket)
	l.byNumber.Put(ticket.Number, ticket)
}

func (l *Ledger) pop(ticket *Ticket) {
	l.byIdentity.Remove(ticket.Identity)
	l.byNumber.Remove(ticket.Number)
}

package queue

import "time"

type Identity string

type Ticket struct {
	// Student holding the ticket.
	Identity Identity

	// Assigned from the global counter. Never reissued.
	Number int

	// The time when ticket is created.
	IssuedAt time.Time
}

// Position is how many numbers are ahead of the ticket. Zero means it
// is being served now; a ticket the serving pointer already passed
// also reports zero.
func (t *Ticket) Position(currentNumber int) int {
	if position := t.Number - currentNumber; position > 0 {
		return position
	}
	return 0
}

package queue

import (
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"time"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"go.uber.org/zap"
)

type Stats struct {
	// Number currently being served. Zero until the teacher calls the
	// first student.
	CurrentNumber int

	// Last number handed out. A ticket's position is
	// ticket.Number - CurrentNumber.
	LastNumber int

	// Avg wait time from issuing a ticket until it is served.
	// Calculated by a fixed size sliding window. Zero until the first
	// ticket is served.
	AvgWaitDuration time.Duration

	// A fixed size sliding window for calculating average wait time.
	waitDurationQueue *linkedlistqueue.Queue

	windowSize int

	logger *zap.SugaredLogger
}

func ProvideStats(config *config.Config, loggerFactory *infra.LoggerFactory) *Stats {
	return &Stats{
		CurrentNumber: 0,
		LastNumber:    0,

		waitDurationQueue: linkedlistqueue.New(),
		windowSize:        config.AverageWaitWindowSize,
		logger:            loggerFactory.Create("Stats").Sugar(),
	}
}

func (s *Stats) incrLastNumber() int {
	s.LastNumber++
	return s.LastNumber
}

func (s *Stats) hasWaiting() bool {
	return s.CurrentNumber < s.LastNumber
}

func (s *Stats) incrCurrentNumber() {
	if s.hasWaiting() {
		s.CurrentNumber++
	}
}

func (s *Stats) updateAvgWait(waitDurations ...time.Duration) {
	if len(waitDurations) == 0 {
		return
	}

	for _, value := range waitDurations {
		if s.waitDurationQueue.Size() >= s.windowSize {
			s.waitDurationQueue.Dequeue()
		}
		s.waitDurationQueue.Enqueue(value)
	}

	if s.waitDurationQueue.Size() <= 0 {
		return
	}

	it := s.waitDurationQueue.Iterator()
	var totalWaitDuration time.Duration
	for it.Next() {
		totalWaitDuration += it.Value().(time.Duration)
	}

	s.AvgWaitDuration = totalWaitDuration / time.Duration(s.waitDurationQueue.Size())
	s.logger.Debugf("updated avgWaitDuration[%v]", s.AvgWaitDuration)
}

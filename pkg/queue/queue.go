package queue

import (
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type request struct {
	run  func(engine *Engine)
	done chan struct{}
}

// Queue owns the Engine. All requests and the presence sweep run on one
// worker goroutine, so each of them is an indivisible step relative to
// the others.
type Queue struct {
	// Requests from handlers. Each one runs to completion once the
	// worker picks it up.
	requests chan *request

	// Closed when the worker exits.
	stopped chan struct{}

	startOnce sync.Once

	engine *Engine

	sweepInterval time.Duration
	statsInterval time.Duration

	logger *zap.SugaredLogger
}

func ProvideQueue(engine *Engine, config *config.Config, loggerFactory *infra.LoggerFactory) *Queue {
	return &Queue{
		requests: make(chan *request, 1024),
		stopped:  make(chan struct{}),

		engine:        engine,
		sweepInterval: config.PresenceSweepInterval(),
		statsInterval: config.NotifyStatsInterval(),
		logger:        loggerFactory.Create("Queue").Sugar(),
	}
}

// Run starts the worker. It stops when ctx is done. Calling Run twice
// has no effect.
func (q *Queue) Run(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.queueWorker(ctx)
	})
}

// Don't need lock on engine since only this goroutine touches it.
func (q *Queue) queueWorker(ctx context.Context) {
	sweepTicker := time.NewTicker(q.sweepInterval)
	statsTicker := time.NewTicker(q.statsInterval)
	defer func() {
		sweepTicker.Stop()
		statsTicker.Stop()
		close(q.stopped)
		q.logger.Infof("queue worker stopped")
	}()

	q.logger.Infof("queue worker started sweepInterval[%v] statsInterval[%v]", q.sweepInterval, q.statsInterval)
	for {
		select {
		case <-ctx.Done():
			return

		case req := <-q.requests:
			req.run(q.engine)
			close(req.done)

		case <-sweepTicker.C:
			q.engine.SweepPresence()

		case <-statsTicker.C:
			students, teachers, tickets, lostFocus := q.engine.counts()
			q.logger.Infof("current stats currentNumber[%v] lastNumber[%v] avgWait[%v] students[%v] teachers[%v] tickets[%v] lostFocus[%v]",
				q.engine.stats.CurrentNumber, q.engine.stats.LastNumber, q.engine.stats.AvgWaitDuration,
				students, teachers, tickets, lostFocus)
		}
	}
}

// do hands fn to the worker and waits until it ran.
func (q *Queue) do(fn func(engine *Engine)) error {
	req := &request{
		run:  fn,
		done: make(chan struct{}),
	}

	select {
	case q.requests <- req:
	case <-q.stopped:
		return ErrStopped
	}

	select {
	case <-req.done:
		return nil
	case <-q.stopped:
		// The worker may have exited with req still buffered.
		select {
		case <-req.done:
			return nil
		default:
			return ErrStopped
		}
	}
}

func call[T any](q *Queue, fn func(engine *Engine) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	if stopErr := q.do(func(engine *Engine) {
		result, err = fn(engine)
	}); stopErr != nil {
		var zero T
		return zero, stopErr
	}
	return result, err
}

func (q *Queue) Join(name string) (*Session, error) {
	return call(q, func(engine *Engine) (*Session, error) {
		return engine.Join(name)
	})
}

// VerifyStudent is false when the worker is stopped.
func (q *Queue) VerifyStudent(identity Identity, token string) bool {
	valid, _ := call(q, func(engine *Engine) (bool, error) {
		return engine.VerifyStudent(identity, token), nil
	})
	return valid
}

func (q *Queue) GetNumber(identity Identity, token string) (int, error) {
	return call(q, func(engine *Engine) (int, error) {
		return engine.GetNumber(identity, token)
	})
}

func (q *Queue) RemoveNumber(identity Identity, token string) (time.Duration, error) {
	return call(q, func(engine *Engine) (time.Duration, error) {
		return engine.RemoveNumber(identity, token)
	})
}

func (q *Queue) Heartbeat(identity Identity, token string) error {
	_, err := call(q, func(engine *Engine) (struct{}, error) {
		return struct{}{}, engine.Heartbeat(identity, token)
	})
	return err
}

func (q *Queue) LostFocus(identity Identity, token string) error {
	_, err := call(q, func(engine *Engine) (struct{}, error) {
		return struct{}{}, engine.LostFocus(identity, token)
	})
	return err
}

func (q *Queue) RegainFocus(identity Identity, token string) error {
	_, err := call(q, func(engine *Engine) (struct{}, error) {
		return struct{}{}, engine.RegainFocus(identity, token)
	})
	return err
}

func (q *Queue) Dashboard(identity Identity, token string) (*Dashboard, error) {
	return call(q, func(engine *Engine) (*Dashboard, error) {
		return engine.Dashboard(identity, token)
	})
}

func (q *Queue) StudentLogout(token string) error {
	return q.do(func(engine *Engine) {
		engine.StudentLogout(token)
	})
}

func (q *Queue) TeacherLogin(username string) (*Session, error) {
	return call(q, func(engine *Engine) (*Session, error) {
		return engine.TeacherLogin(username)
	})
}

func (q *Queue) VerifyTeacher(username string, token string) bool {
	valid, _ := call(q, func(engine *Engine) (bool, error) {
		return engine.VerifyTeacher(username, token), nil
	})
	return valid
}

func (q *Queue) TeacherLogout(token string) error {
	return q.do(func(engine *Engine) {
		engine.TeacherLogout(token)
	})
}

func (q *Queue) Next(token string) (*Progress, error) {
	return call(q, func(engine *Engine) (*Progress, error) {
		return engine.Next(token)
	})
}

func (q *Queue) WaitingList(token string) (*WaitingList, error) {
	return call(q, func(engine *Engine) (*WaitingList, error) {
		return engine.WaitingList(token)
	})
}

func (q *Queue) JoinedStudents(token string) ([]JoinedStudent, error) {
	return call(q, func(engine *Engine) ([]JoinedStudent, error) {
		return engine.JoinedStudents(token)
	})
}

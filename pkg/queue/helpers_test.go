package queue

import (
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"testing"
	"time"
)

var testEpoch = time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *infra.FakeClock) {
	t.Helper()
	cfg := config.Default()
	clock := infra.NewFakeClock(testEpoch)
	loggerFactory := infra.NewNopLoggerFactory()
	stats := ProvideStats(cfg, loggerFactory)
	return ProvideEngine(cfg, stats, clock, loggerFactory), clock
}

// join logs a student in and returns the session token.
func join(t *testing.T, engine *Engine, name string) string {
	t.Helper()
	session, err := engine.Join(name)
	if err != nil {
		t.Fatalf("Join(%q): %v", name, err)
	}
	return session.Token
}

// joinWithNumber logs a student in and takes a ticket.
func joinWithNumber(t *testing.T, engine *Engine, name string) (string, int) {
	t.Helper()
	token := join(t, engine, name)
	number, err := engine.GetNumber(Identity(name), token)
	if err != nil {
		t.Fatalf("GetNumber(%q): %v", name, err)
	}
	return token, number
}

func loginTeacher(t *testing.T, engine *Engine, username string) string {
	t.Helper()
	session, err := engine.TeacherLogin(username)
	if err != nil {
		t.Fatalf("TeacherLogin(%q): %v", username, err)
	}
	return session.Token
}

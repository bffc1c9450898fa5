package queue

import (
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Dashboard struct {
	CurrentNumber int
	LastNumber    int

	// Nil when the student holds no ticket.
	MyNumber *int
	Position *int
}

type Progress struct {
	CurrentNumber int
	LastNumber    int
}

type WaitingList struct {
	Waiting         []Ticket
	CurrentNumber   int
	LastNumber      int
	CurrentStudent  *Ticket
	LostFocus       []LostFocusEntry
	AvgWaitDuration time.Duration
}

type JoinedStudent struct {
	Identity Identity
	Number   *int
	HasFocus bool
}

// Engine is the whole queue state: ledger, sessions, cooldowns and
// presence. Every method is one atomic step as long as calls are
// serialized, which Queue does. Do not call it from more than one
// goroutine.
type Engine struct {
	stats     *Stats
	ledger    *Ledger
	registry  *Registry
	cooldowns *Cooldowns
	presence  *Presence
	clock     infra.Clock

	logger *zap.SugaredLogger
}

func ProvideEngine(config *config.Config, stats *Stats, clock infra.Clock, loggerFactory *infra.LoggerFactory) *Engine {
	logger := loggerFactory.Create("Engine").Sugar()
	cooldowns := NewCooldowns(clock)

	return &Engine{
		stats:     stats,
		ledger:    NewLedger(stats, cooldowns, config.Cooldown(), clock, logger),
		registry:  NewRegistry(),
		cooldowns: cooldowns,
		presence:  NewPresence(config.HeartbeatTimeout(), clock),
		clock:     clock,
		logger:    logger,
	}
}

func (e *Engine) authorizeStudent(identity Identity, token string) error {
	if !e.registry.Verify(identity, RoleStudent, token) {
		e.logger.Debugf("unauthorized student identity[%v]", identity)
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) authorizeTeacher(token string) error {
	if _, ok := e.registry.Lookup(token, RoleTeacher); !ok {
		e.logger.Debugf("unauthorized teacher request")
		return ErrUnauthorized
	}
	return nil
}

// Join creates a student session and seeds its heartbeat.
func (e *Engine) Join(name string) (*Session, error) {
	identity := Identity(strings.TrimSpace(name))
	if identity == "" {
		return nil, ErrEmptyName
	}

	session, err := e.registry.Create(identity, RoleStudent, e.clock.Now())
	if err != nil {
		e.logger.Infof("rejected join identity[%v] err[%v]", identity, err)
		return nil, err
	}
	e.presence.Beat(identity)

	e.logger.Infof("student joined identity[%v]", identity)
	copied := *session
	return &copied, nil
}

func (e *Engine) VerifyStudent(identity Identity, token string) bool {
	return e.registry.Verify(identity, RoleStudent, token)
}

func (e *Engine) GetNumber(identity Identity, token string) (int, error) {
	if err := e.authorizeStudent(identity, token); err != nil {
		return 0, err
	}

	ticket, err := e.ledger.Issue(identity)
	if err != nil {
		e.logger.Infof("rejected get number identity[%v] err[%v]", identity, err)
		return 0, err
	}
	return ticket.Number, nil
}

// RemoveNumber drops the student's ticket, starts the cooldown and clears
// the lost-focus flag. Returns the cooldown length.
func (e *Engine) RemoveNumber(identity Identity, token string) (time.Duration, error) {
	if err := e.authorizeStudent(identity, token); err != nil {
		return 0, err
	}

	if _, err := e.ledger.Remove(identity); err != nil {
		return 0, err
	}
	e.presence.Regain(identity)

	return e.ledger.cooldown, nil
}

func (e *Engine) Heartbeat(identity Identity, token string) error {
	if err := e.authorizeStudent(identity, token); err != nil {
		return err
	}
	e.presence.Beat(identity)
	return nil
}

// LostFocus flags the student as away. The entry has no reason, unlike
// the ones the sweep adds.
func (e *Engine) LostFocus(identity Identity, token string) error {
	if err := e.authorizeStudent(identity, token); err != nil {
		return err
	}
	if e.presence.MarkLost(identity, e.ledger.NumberOf(identity), "") {
		e.logger.Debugf("lost focus identity[%v]", identity)
	}
	return nil
}

func (e *Engine) RegainFocus(identity Identity, token string) error {
	if err := e.authorizeStudent(identity, token); err != nil {
		return err
	}
	if e.presence.Regain(identity) {
		e.logger.Debugf("regained focus identity[%v]", identity)
	}
	return nil
}

func (e *Engine) Dashboard(identity Identity, token string) (*Dashboard, error) {
	if err := e.authorizeStudent(identity, token); err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		CurrentNumber: e.stats.CurrentNumber,
		LastNumber:    e.stats.LastNumber,
		MyNumber:      e.ledger.NumberOf(identity),
	}
	if position, ok := e.ledger.Position(identity); ok {
		dashboard.Position = &position
	}
	return dashboard, nil
}

// StudentLogout destroys the session the token belongs to together with
// its ticket, heartbeat and lost-focus entry. Unknown tokens are
// ignored.
func (e *Engine) StudentLogout(token string) {
	session, ok := e.registry.Lookup(token, RoleStudent)
	if !ok {
		return
	}

	identity := session.Identity
	e.registry.Destroy(identity, RoleStudent)
	e.presence.Forget(identity)
	e.ledger.Discard(identity)

	e.logger.Infof("student logged out identity[%v]", identity)
}

// TeacherLogin opens a teacher session. Credentials are checked by the
// caller before this is reached.
func (e *Engine) TeacherLogin(username string) (*Session, error) {
	session, err := e.registry.Create(Identity(username), RoleTeacher, e.clock.Now())
	if err != nil {
		e.logger.Infof("rejected teacher login username[%v] err[%v]", username, err)
		return nil, err
	}

	e.logger.Infof("teacher logged in username[%v]", username)
	copied := *session
	return &copied, nil
}

func (e *Engine) VerifyTeacher(username string, token string) bool {
	return e.registry.Verify(Identity(username), RoleTeacher, token)
}

func (e *Engine) TeacherLogout(token string) {
	session, ok := e.registry.Lookup(token, RoleTeacher)
	if !ok {
		return
	}
	e.registry.Destroy(session.Identity, RoleTeacher)
	e.logger.Infof("teacher logged out username[%v]", session.Identity)
}

func (e *Engine) Next(token string) (*Progress, error) {
	if err := e.authorizeTeacher(token); err != nil {
		return nil, err
	}

	if err := e.ledger.Advance(); err != nil {
		return nil, err
	}

	return &Progress{
		CurrentNumber: e.stats.CurrentNumber,
		LastNumber:    e.stats.LastNumber,
	}, nil
}

func (e *Engine) WaitingList(token string) (*WaitingList, error) {
	if err := e.authorizeTeacher(token); err != nil {
		return nil, err
	}

	list := &WaitingList{
		Waiting:         make([]Ticket, 0),
		CurrentNumber:   e.stats.CurrentNumber,
		LastNumber:      e.stats.LastNumber,
		LostFocus:       make([]LostFocusEntry, 0),
		AvgWaitDuration: e.stats.AvgWaitDuration,
	}
	for _, ticket := range e.ledger.Waiting() {
		list.Waiting = append(list.Waiting, *ticket)
	}
	if ticket, ok := e.ledger.Serving(); ok {
		copied := *ticket
		list.CurrentStudent = &copied
	}
	for _, entry := range e.presence.LostFocus() {
		list.LostFocus = append(list.LostFocus, *entry)
	}
	return list, nil
}

func (e *Engine) JoinedStudents(token string) ([]JoinedStudent, error) {
	if err := e.authorizeTeacher(token); err != nil {
		return nil, err
	}

	students := make([]JoinedStudent, 0, e.registry.Count(RoleStudent))
	for _, session := range e.registry.Students() {
		students = append(students, JoinedStudent{
			Identity: session.Identity,
			Number:   e.ledger.NumberOf(session.Identity),
			HasFocus: !e.presence.IsLost(session.Identity),
		})
	}
	return students, nil
}

// SweepPresence runs one presence check. Called on every sweep tick.
func (e *Engine) SweepPresence() []Identity {
	flagged := e.presence.Sweep(e.ledger.NumberOf)
	for _, identity := range flagged {
		e.logger.Infof("disconnected identity[%v]", identity)
	}
	return flagged
}

func (e *Engine) counts() (students, teachers, tickets, lostFocus int) {
	return e.registry.Count(RoleStudent), e.registry.Count(RoleTeacher), e.ledger.Size(), len(e.presence.LostFocus())
}

package main

import (
	"classroom/take-a-number/queue-server/pkg/account"
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"classroom/take-a-number/queue-server/pkg/msg"
	"classroom/take-a-number/queue-server/pkg/queue"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	studentCookie = "student_session"
	teacherCookie = "teacher_session"
)

type Application struct {
	config   *config.Config
	queue    *queue.Queue
	accounts account.Store
	logger   *zap.SugaredLogger
}

func ProvideApplication(config *config.Config, queue *queue.Queue, accounts account.Store, loggerFactory *infra.LoggerFactory) *Application {
	return &Application{
		config:   config,
		queue:    queue,
		accounts: accounts,
		logger:   loggerFactory.Create("Application").Sugar(),
	}
}

func (a *Application) Run(ctx context.Context) {
	a.queue.Run(ctx)
}

func (a *Application) setSession(c echo.Context, name, token string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   a.config.SessionCookieMaxAgeSeconds,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Application) clearSession(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionToken(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (a *Application) bindStudent(c echo.Context) (queue.Identity, string, error) {
	req := &msg.StudentRequest{}
	if err := c.Bind(req); err != nil {
		return "", "", err
	}
	return queue.Identity(strings.TrimSpace(req.Name)), sessionToken(c, studentCookie), nil
}

// fail turns an error into a JSON reply. Engine errors map to a status
// by kind; anything else is logged and reported as 500.
func (a *Application) fail(c echo.Context, err error) error {
	code := queue.CodeOf(err)

	var cooldownErr *queue.CooldownError
	if errors.As(err, &cooldownErr) {
		return c.JSON(http.StatusTooManyRequests, &msg.CooldownResponse{
			Response:         *msg.Fail(code, err.Error()),
			RemainingSeconds: cooldownErr.RemainingSeconds(),
		})
	}

	switch queue.KindOf(err) {
	case queue.KindUnauthorized:
		return c.JSON(http.StatusUnauthorized, msg.Fail(code, "Unauthorized"))
	case queue.KindConflict:
		return c.JSON(http.StatusConflict, msg.Fail(code, err.Error()))
	case queue.KindEmpty:
		// Informational, the request itself was fine.
		return c.JSON(http.StatusOK, msg.Fail(code, err.Error()))
	case queue.KindInvalid:
		return c.JSON(http.StatusBadRequest, msg.Fail(code, err.Error()))
	}

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return c.JSON(httpErr.Code, msg.Fail("BadRequest", "Invalid request"))
	case errors.Is(err, queue.ErrStopped):
		return c.JSON(http.StatusServiceUnavailable, msg.Fail("Unavailable", "Server is shutting down"))
	case errors.Is(err, account.ErrMissingCredentials):
		return c.JSON(http.StatusBadRequest, msg.Fail("MissingCredentials", "Username and password required"))
	case errors.Is(err, account.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, msg.Fail("InvalidCredentials", "Invalid credentials"))
	case errors.Is(err, account.ErrAccountExists):
		return c.JSON(http.StatusConflict, msg.Fail("AccountExists", "Teacher already exists"))
	}

	a.logger.Errorf("request failed uri[%v] err[%v]", c.Request().RequestURI, err)
	return c.JSON(http.StatusInternalServerError, msg.Fail(code, "Server error"))
}

// ==================== STUDENT ====================

func (a *Application) HandleStudentJoin(c echo.Context) error {
	req := &msg.StudentRequest{}
	if err := c.Bind(req); err != nil {
		return a.fail(c, err)
	}

	session, err := a.queue.Join(req.Name)
	if err != nil {
		return a.fail(c, err)
	}

	a.setSession(c, studentCookie, session.Token)
	return c.JSON(http.StatusOK, &msg.JoinResponse{
		Response: msg.Response{Success: true, Message: "Joined successfully"},
		Name:     string(session.Identity),
	})
}

func (a *Application) HandleStudentVerify(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(http.StatusOK, &msg.VerifyResponse{
		Response: *msg.OK(),
		Valid:    a.queue.VerifyStudent(identity, token),
	})
}

func (a *Application) HandleGetNumber(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		return a.fail(c, err)
	}

	number, err := a.queue.GetNumber(identity, token)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(http.StatusOK, &msg.NumberResponse{
		Response: *msg.OK(),
		Number:   number,
	})
}

func (a *Application) HandleRemoveNumber(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		return a.fail(c, err)
	}

	cooldown, err := a.queue.RemoveNumber(identity, token)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(http.StatusOK, &msg.RemoveNumberResponse{
		Response:        msg.Response{Success: true, Message: "Number removed. Cooldown applied."},
		CooldownSeconds: int(cooldown.Seconds()),
	})
}

func (a *Application) HandleHeartbeat(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := a.queue.Heartbeat(identity, token); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, msg.OK())
}

func (a *Application) HandleLostFocus(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := a.queue.LostFocus(identity, token); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, msg.OK())
}

// HandleLostFocusBeacon serves navigator.sendBeacon on page close. The
// browser never reads the reply, so every outcome is 204.
func (a *Application) HandleLostFocusBeacon(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		a.logger.Debugf("unreadable beacon err[%v]", err)
		return c.NoContent(http.StatusNoContent)
	}

	if err := a.queue.LostFocus(identity, token); err != nil {
		a.logger.Debugf("beacon ignored identity[%v] err[%v]", identity, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *Application) HandleRegainFocus(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := a.queue.RegainFocus(identity, token); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, msg.OK())
}

func (a *Application) HandleDashboard(c echo.Context) error {
	identity, token, err := a.bindStudent(c)
	if err != nil {
		return a.fail(c, err)
	}

	dashboard, err := a.queue.Dashboard(identity, token)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(http.StatusOK, &msg.DashboardResponse{
		Response:   *msg.OK(),
		CurrentNum: dashboard.CurrentNumber,
		LastNum:    dashboard.LastNumber,
		MyNumber:   dashboard.MyNumber,
		Position:   dashboard.Position,
	})
}

// HandleStudentLogout is best-effort and always acks.
func (a *Application) HandleStudentLogout(c echo.Context) error {
	if token := sessionToken(c, studentCookie); token != "" {
		if err := a.queue.StudentLogout(token); err != nil {
			a.logger.Warnf("student logout failed err[%v]", err)
		}
	}
	a.clearSession(c, studentCookie)
	return c.JSON(http.StatusOK, msg.OK())
}

// ==================== TEACHER ====================

func (a *Application) HandleTeacherSignup(c echo.Context) error {
	req := &msg.TeacherCredentialRequest{}
	if err := c.Bind(req); err != nil {
		return a.fail(c, err)
	}

	if err := a.accounts.Create(c.Request().Context(), req.Username, req.Password); err != nil {
		return a.fail(c, err)
	}

	a.logger.Infof("teacher account created username[%v]", req.Username)
	return c.JSON(http.StatusOK, &msg.Response{Success: true, Message: "Teacher account created"})
}

func (a *Application) HandleTeacherLogin(c echo.Context) error {
	req := &msg.TeacherCredentialRequest{}
	if err := c.Bind(req); err != nil {
		return a.fail(c, err)
	}

	// Hash comparison happens here, outside the queue worker.
	if err := a.accounts.Verify(c.Request().Context(), req.Username, req.Password); err != nil {
		return a.fail(c, err)
	}

	session, err := a.queue.TeacherLogin(req.Username)
	if err != nil {
		return a.fail(c, err)
	}

	a.setSession(c, teacherCookie, session.Token)
	return c.JSON(http.StatusOK, &msg.LoginResponse{
		Response: msg.Response{Success: true, Message: "Login successful"},
		Username: string(session.Identity),
	})
}

func (a *Application) HandleTeacherVerify(c echo.Context) error {
	req := &msg.TeacherVerifyRequest{}
	if err := c.Bind(req); err != nil {
		return a.fail(c, err)
	}

	return c.JSON(http.StatusOK, &msg.VerifyResponse{
		Response: *msg.OK(),
		Valid:    a.queue.VerifyTeacher(req.Username, sessionToken(c, teacherCookie)),
	})
}

func (a *Application) HandleTeacherList(c echo.Context) error {
	usernames, err := a.accounts.List(c.Request().Context())
	if err != nil {
		return a.fail(c, err)
	}

	teachers := make([]msg.TeacherEntry, 0, len(usernames))
	for _, username := range usernames {
		teachers = append(teachers, msg.TeacherEntry{Username: username})
	}
	return c.JSON(http.StatusOK, &msg.TeacherListResponse{
		Response: *msg.OK(),
		Teachers: teachers,
	})
}

func (a *Application) HandleNext(c echo.Context) error {
	progress, err := a.queue.Next(sessionToken(c, teacherCookie))
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(http.StatusOK, &msg.ProgressResponse{
		Response:   *msg.OK(),
		CurrentNum: progress.CurrentNumber,
		LastNum:    progress.LastNumber,
	})
}

func (a *Application) HandleWaitingList(c echo.Context) error {
	list, err := a.queue.WaitingList(sessionToken(c, teacherCookie))
	if err != nil {
		return a.fail(c, err)
	}

	res := &msg.WaitingListResponse{
		Response:          *msg.OK(),
		WaitingList:       make([]msg.TicketEntry, 0, len(list.Waiting)),
		CurrentNum:        list.CurrentNumber,
		LastNum:           list.LastNumber,
		LostFocusStudents: make([]msg.LostFocusEntry, 0, len(list.LostFocus)),
		AvgWaitMsec:       list.AvgWaitDuration.Milliseconds(),
	}
	for _, ticket := range list.Waiting {
		res.WaitingList = append(res.WaitingList, msg.TicketEntry{
			Name:   string(ticket.Identity),
			Number: ticket.Number,
		})
	}
	if list.CurrentStudent != nil {
		res.CurrentStudent = &msg.TicketEntry{
			Name:   string(list.CurrentStudent.Identity),
			Number: list.CurrentStudent.Number,
		}
	}
	for _, entry := range list.LostFocus {
		res.LostFocusStudents = append(res.LostFocusStudents, msg.LostFocusEntry{
			Name:   string(entry.Identity),
			Number: entry.Number,
			Reason: entry.Reason,
		})
	}
	return c.JSON(http.StatusOK, res)
}

func (a *Application) HandleJoinedStudents(c echo.Context) error {
	students, err := a.queue.JoinedStudents(sessionToken(c, teacherCookie))
	if err != nil {
		return a.fail(c, err)
	}

	res := &msg.JoinedStudentsResponse{
		Response:      *msg.OK(),
		Students:      make([]msg.JoinedStudent, 0, len(students)),
		TotalStudents: len(students),
	}
	for _, student := range students {
		res.Students = append(res.Students, msg.JoinedStudent{
			Name:     string(student.Identity),
			Number:   student.Number,
			HasFocus: student.HasFocus,
		})
	}
	return c.JSON(http.StatusOK, res)
}

func (a *Application) HandleTeacherLogout(c echo.Context) error {
	if token := sessionToken(c, teacherCookie); token != "" {
		if err := a.queue.TeacherLogout(token); err != nil {
			a.logger.Warnf("teacher logout failed err[%v]", err)
		}
	}
	a.clearSession(c, teacherCookie)
	return c.JSON(http.StatusOK, msg.OK())
}

package main

import (
	"bytes"
	"classroom/take-a-number/queue-server/pkg/account"
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"classroom/take-a-number/queue-server/pkg/queue"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func newTestServer(t *testing.T) (*Server, *infra.FakeClock) {
	t.Helper()
	cfg := config.Default()
	loggerFactory := infra.NewNopLoggerFactory()
	clock := infra.NewFakeClock(time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC))
	stats := queue.ProvideStats(cfg, loggerFactory)
	engine := queue.ProvideEngine(cfg, stats, clock, loggerFactory)
	q := queue.ProvideQueue(engine, cfg, loggerFactory)
	application := ProvideApplication(cfg, q, account.NewMemoryStore(), loggerFactory)
	server := ProvideServer(cfg, application, loggerFactory)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	application.Run(ctx)
	return server, clock
}

// browser keeps cookies between requests like a real client would.
type browser struct {
	t       *testing.T
	server  *Server
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, server *Server) *browser {
	return &browser{t: t, server: server, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, target string, body any) (int, map[string]any) {
	b.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			b.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	b.server.echo.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie
	}

	result := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			b.t.Fatalf("%v %v: invalid json %q", method, target, rec.Body.String())
		}
	}
	return rec.Code, result
}

func (b *browser) expect(method, target string, body any, status int) map[string]any {
	b.t.Helper()
	code, result := b.do(method, target, body)
	if code != status {
		b.t.Fatalf("%v %v: expected status %d, got %d body %v", method, target, status, code, result)
	}
	return result
}

func joinStudent(t *testing.T, server *Server, name string) *browser {
	t.Helper()
	b := newBrowser(t, server)
	b.expect(http.MethodPost, "/student/join", map[string]string{"name": name}, http.StatusOK)
	return b
}

func loginTeacherBrowser(t *testing.T, server *Server, username string) *browser {
	t.Helper()
	b := newBrowser(t, server)
	credentials := map[string]string{"username": username, "password": "secret"}
	b.expect(http.MethodPost, "/teacher/signup", credentials, http.StatusOK)
	b.expect(http.MethodPost, "/teacher/login", credentials, http.StatusOK)
	return b
}

func TestServer_StudentJoinSetsSession(t *testing.T) {
	server, _ := newTestServer(t)
	b := newBrowser(t, server)

	result := b.expect(http.MethodPost, "/student/join", map[string]string{"name": "  alice "}, http.StatusOK)
	if result["name"] != "alice" {
		t.Errorf("expected trimmed name alice, got %v", result["name"])
	}
	cookie, ok := b.cookies[studentCookie]
	if !ok || len(cookie.Value) != 32 {
		t.Fatalf("expected 32 char session cookie, got %+v", cookie)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be http only")
	}

	result = b.expect(http.MethodPost, "/student/verify-session", map[string]string{"name": "alice"}, http.StatusOK)
	if result["valid"] != true {
		t.Errorf("expected valid session, got %v", result)
	}

	// A second tab with the same name is rejected.
	other := newBrowser(t, server)
	result = other.expect(http.MethodPost, "/student/join", map[string]string{"name": "alice"}, http.StatusConflict)
	if result["code"] != "DuplicateSession" {
		t.Errorf("expected DuplicateSession, got %v", result["code"])
	}
}

func TestServer_StudentJoinRejectsEmptyName(t *testing.T) {
	server, _ := newTestServer(t)
	b := newBrowser(t, server)

	result := b.expect(http.MethodPost, "/student/join", map[string]string{"name": "   "}, http.StatusBadRequest)
	if result["code"] != "EmptyName" {
		t.Errorf("expected EmptyName, got %v", result["code"])
	}
}

func TestServer_StudentRoutesRequireSession(t *testing.T) {
	server, _ := newTestServer(t)
	b := newBrowser(t, server)
	body := map[string]string{"name": "alice"}

	for _, target := range []string{"/student/get-number", "/student/remove-number", "/student/heartbeat", "/student/lost-focus", "/student/regain-focus"} {
		result := b.expect(http.MethodPost, target, body, http.StatusUnauthorized)
		if result["success"] != false {
			t.Errorf("%v: expected success false, got %v", target, result)
		}
	}
	b.expect(http.MethodGet, "/student/dashboard-data?name=alice", nil, http.StatusUnauthorized)

	result := b.expect(http.MethodPost, "/student/verify-session", body, http.StatusOK)
	if result["valid"] != false {
		t.Errorf("expected invalid session, got %v", result)
	}
}

func TestServer_GetNumberAndDashboard(t *testing.T) {
	server, _ := newTestServer(t)
	alice := joinStudent(t, server, "alice")
	bob := joinStudent(t, server, "bob")

	result := alice.expect(http.MethodPost, "/student/get-number", map[string]string{"name": "alice"}, http.StatusOK)
	if result["number"] != float64(1) {
		t.Fatalf("expected number 1, got %v", result["number"])
	}
	result = bob.expect(http.MethodPost, "/student/get-number", map[string]string{"name": "bob"}, http.StatusOK)
	if result["number"] != float64(2) {
		t.Fatalf("expected number 2, got %v", result["number"])
	}

	result = alice.expect(http.MethodPost, "/student/get-number", map[string]string{"name": "alice"}, http.StatusConflict)
	if result["code"] != "AlreadyQueued" {
		t.Errorf("expected AlreadyQueued, got %v", result["code"])
	}

	result = bob.expect(http.MethodGet, "/student/dashboard-data?name=bob", nil, http.StatusOK)
	if result["currentNum"] != float64(0) || result["lastNum"] != float64(2) {
		t.Errorf("unexpected counters %v", result)
	}
	if result["myNumber"] != float64(2) || result["position"] != float64(2) {
		t.Errorf("expected myNumber 2 position 2, got %v", result)
	}

	// Bob cannot act as alice even with a valid cookie of their own.
	bob.expect(http.MethodPost, "/student/get-number", map[string]string{"name": "alice"}, http.StatusUnauthorized)
}

func TestServer_DashboardWithoutTicket(t *testing.T) {
	server, _ := newTestServer(t)
	alice := joinStudent(t, server, "alice")

	result := alice.expect(http.MethodGet, "/student/dashboard-data?name=alice", nil, http.StatusOK)
	if result["myNumber"] != nil || result["position"] != nil {
		t.Errorf("expected null myNumber and position, got %v", result)
	}
}

func TestServer_RemoveNumberStartsCooldown(t *testing.T) {
	server, clock := newTestServer(t)
	alice := joinStudent(t, server, "alice")
	body := map[string]string{"name": "alice"}

	alice.expect(http.MethodPost, "/student/get-number", body, http.StatusOK)
	result := alice.expect(http.MethodPost, "/student/remove-number", body, http.StatusOK)
	if result["cooldownSeconds"] != float64(120) {
		t.Fatalf("expected cooldownSeconds 120, got %v", result["cooldownSeconds"])
	}

	result = alice.expect(http.MethodPost, "/student/remove-number", body, http.StatusConflict)
	if result["code"] != "NotQueued" {
		t.Errorf("expected NotQueued, got %v", result["code"])
	}

	clock.Advance(30 * time.Second)
	result = alice.expect(http.MethodPost, "/student/get-number", body, http.StatusTooManyRequests)
	if result["code"] != "CooldownActive" || result["remainingSeconds"] != float64(90) {
		t.Errorf("expected 90 seconds of cooldown, got %v", result)
	}

	clock.Advance(90 * time.Second)
	result = alice.expect(http.MethodPost, "/student/get-number", body, http.StatusOK)
	if result["number"] != float64(2) {
		t.Errorf("numbers are never reused, expected 2, got %v", result["number"])
	}
}

func TestServer_FocusReporting(t *testing.T) {
	server, _ := newTestServer(t)
	alice := joinStudent(t, server, "alice")
	teacher := loginTeacherBrowser(t, server, "mr-smith")
	body := map[string]string{"name": "alice"}

	alice.expect(http.MethodPost, "/student/get-number", body, http.StatusOK)
	alice.expect(http.MethodPost, "/student/lost-focus", body, http.StatusOK)

	result := teacher.expect(http.MethodGet, "/teacher/waiting-list", nil, http.StatusOK)
	lost := result["lostFocusStudents"].([]any)
	if len(lost) != 1 {
		t.Fatalf("expected one lost focus entry, got %v", lost)
	}
	entry := lost[0].(map[string]any)
	if entry["name"] != "alice" || entry["number"] != float64(1) {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["reason"]; ok {
		t.Errorf("client reported blur should carry no reason, got %v", entry)
	}

	result = teacher.expect(http.MethodGet, "/teacher/joined-students", nil, http.StatusOK)
	students := result["students"].([]any)
	if students[0].(map[string]any)["hasFocus"] != false {
		t.Errorf("expected alice without focus, got %v", students)
	}

	alice.expect(http.MethodPost, "/student/regain-focus", body, http.StatusOK)
	result = teacher.expect(http.MethodGet, "/teacher/waiting-list", nil, http.StatusOK)
	if len(result["lostFocusStudents"].([]any)) != 0 {
		t.Errorf("expected empty lost focus list, got %v", result["lostFocusStudents"])
	}
}

func TestServer_BeaconAlwaysNoContent(t *testing.T) {
	server, _ := newTestServer(t)
	stranger := newBrowser(t, server)

	code, _ := stranger.do(http.MethodPost, "/student/beacon/lost-focus", map[string]string{"name": "alice"})
	if code != http.StatusNoContent {
		t.Errorf("expected 204 without session, got %d", code)
	}

	alice := joinStudent(t, server, "alice")
	code, _ = alice.do(http.MethodPost, "/student/beacon/lost-focus", map[string]string{"name": "alice"})
	if code != http.StatusNoContent {
		t.Errorf("expected 204 with session, got %d", code)
	}

	teacher := loginTeacherBrowser(t, server, "mr-smith")
	result := teacher.expect(http.MethodGet, "/teacher/waiting-list", nil, http.StatusOK)
	if len(result["lostFocusStudents"].([]any)) != 1 {
		t.Errorf("beacon should record lost focus, got %v", result["lostFocusStudents"])
	}
}

func TestServer_StudentLogout(t *testing.T) {
	server, _ := newTestServer(t)
	alice := joinStudent(t, server, "alice")
	body := map[string]string{"name": "alice"}
	alice.expect(http.MethodPost, "/student/get-number", body, http.StatusOK)

	alice.expect(http.MethodPost, "/student/logout", nil, http.StatusOK)
	if _, ok := alice.cookies[studentCookie]; ok {
		t.Error("logout should clear the session cookie")
	}
	alice.expect(http.MethodPost, "/student/get-number", body, http.StatusUnauthorized)

	// Logging out twice is harmless.
	alice.expect(http.MethodPost, "/student/logout", nil, http.StatusOK)

	// The name is free again and the old ticket is gone without cooldown.
	again := joinStudent(t, server, "alice")
	result := again.expect(http.MethodPost, "/student/get-number", body, http.StatusOK)
	if result["number"] != float64(2) {
		t.Errorf("expected fresh number 2, got %v", result["number"])
	}
}

func TestServer_TeacherAccounts(t *testing.T) {
	server, _ := newTestServer(t)
	b := newBrowser(t, server)
	credentials := map[string]string{"username": "mr-smith", "password": "secret"}

	b.expect(http.MethodPost, "/teacher/signup", credentials, http.StatusOK)
	result := b.expect(http.MethodPost, "/teacher/signup", credentials, http.StatusConflict)
	if result["code"] != "AccountExists" {
		t.Errorf("expected AccountExists, got %v", result["code"])
	}
	b.expect(http.MethodPost, "/teacher/signup", map[string]string{"username": "ms-jones"}, http.StatusBadRequest)

	b.expect(http.MethodPost, "/teacher/login", map[string]string{"username": "mr-smith", "password": "wrong"}, http.StatusUnauthorized)
	b.expect(http.MethodPost, "/teacher/login", map[string]string{"username": "nobody", "password": "secret"}, http.StatusUnauthorized)

	result = b.expect(http.MethodPost, "/teacher/login", credentials, http.StatusOK)
	if result["username"] != "mr-smith" {
		t.Errorf("expected username mr-smith, got %v", result["username"])
	}
	if _, ok := b.cookies[teacherCookie]; !ok {
		t.Fatal("expected teacher session cookie")
	}

	other := newBrowser(t, server)
	result = other.expect(http.MethodPost, "/teacher/login", credentials, http.StatusConflict)
	if result["code"] != "DuplicateSession" {
		t.Errorf("expected DuplicateSession, got %v", result["code"])
	}

	result = b.expect(http.MethodPost, "/teacher/verify-session", map[string]string{"username": "mr-smith"}, http.StatusOK)
	if result["valid"] != true {
		t.Errorf("expected valid teacher session, got %v", result)
	}

	result = b.expect(http.MethodGet, "/teacher/list", nil, http.StatusOK)
	teachers := result["teachers"].([]any)
	if len(teachers) != 1 || teachers[0].(map[string]any)["username"] != "mr-smith" {
		t.Errorf("unexpected teacher list %v", teachers)
	}

	b.expect(http.MethodPost, "/teacher/logout", nil, http.StatusOK)
	b.expect(http.MethodGet, "/teacher/waiting-list", nil, http.StatusUnauthorized)
	other.expect(http.MethodPost, "/teacher/login", credentials, http.StatusOK)
}

func TestServer_TeacherServesQueue(t *testing.T) {
	server, _ := newTestServer(t)
	teacher := loginTeacherBrowser(t, server, "mr-smith")

	result := teacher.expect(http.MethodPost, "/teacher/next", nil, http.StatusOK)
	if result["success"] != false || result["code"] != "QueueEmpty" {
		t.Fatalf("expected QueueEmpty on empty queue, got %v", result)
	}

	for _, name := range []string{"alice", "bob", "carol"} {
		joinStudent(t, server, name).expect(http.MethodPost, "/student/get-number", map[string]string{"name": name}, http.StatusOK)
	}

	result = teacher.expect(http.MethodPost, "/teacher/next", nil, http.StatusOK)
	if result["currentNum"] != float64(1) || result["lastNum"] != float64(3) {
		t.Fatalf("expected 1/3, got %v", result)
	}

	result = teacher.expect(http.MethodGet, "/teacher/waiting-list", nil, http.StatusOK)
	waiting := result["waitingList"].([]any)
	if len(waiting) != 2 {
		t.Fatalf("expected bob and carol waiting, got %v", waiting)
	}
	if waiting[0].(map[string]any)["name"] != "bob" || waiting[1].(map[string]any)["name"] != "carol" {
		t.Errorf("waiting list out of order %v", waiting)
	}
	current := result["currentStudent"].(map[string]any)
	if current["name"] != "alice" || current["number"] != float64(1) {
		t.Errorf("expected alice being served, got %v", current)
	}

	result = teacher.expect(http.MethodGet, "/teacher/joined-students", nil, http.StatusOK)
	if result["totalStudents"] != float64(3) {
		t.Errorf("expected 3 joined students, got %v", result["totalStudents"])
	}
}

func TestServer_TeacherRoutesRequireSession(t *testing.T) {
	server, _ := newTestServer(t)
	b := newBrowser(t, server)

	b.expect(http.MethodPost, "/teacher/next", nil, http.StatusUnauthorized)
	b.expect(http.MethodGet, "/teacher/waiting-list", nil, http.StatusUnauthorized)
	b.expect(http.MethodGet, "/teacher/joined-students", nil, http.StatusUnauthorized)

	// A student session is not a teacher session.
	alice := joinStudent(t, server, "alice")
	alice.cookies[teacherCookie] = &http.Cookie{Name: teacherCookie, Value: alice.cookies[studentCookie].Value}
	alice.expect(http.MethodPost, "/teacher/next", nil, http.StatusUnauthorized)
}

func TestServer_DebugToggle(t *testing.T) {
	server, _ := newTestServer(t)
	t.Cleanup(func() { infra.LoggerLevel.SetLevel(zapcore.InfoLevel) })

	req := httptest.NewRequest(http.MethodPut, "/debug", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || infra.LoggerLevel.Level() != zapcore.DebugLevel {
		t.Fatalf("expected debug level, got status %d level %v", rec.Code, infra.LoggerLevel.Level())
	}

	req = httptest.NewRequest(http.MethodDelete, "/debug", nil)
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	if infra.LoggerLevel.Level() != zapcore.InfoLevel {
		t.Errorf("expected info level, got %v", infra.LoggerLevel.Level())
	}
}

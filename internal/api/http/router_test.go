package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type testServer struct {
	app  *fiber.App
	auth *service.AuthService
}

func newTestServer(t *testing.T, loginRate int) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	revocations := auth.NewMemoryRevocationStore()

	authService := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost, PasswordMinLength: 8}, service.AuthDependencies{
		UserRepo:    store.Users(),
		Tokens:      tokens,
		Revocations: revocations,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{TicketRepo: store.Tickets(), Dispatcher: dispatcher, Logger: logger})
	userService := service.NewUserService(service.UserDependencies{UserRepo: store.Users(), Dispatcher: dispatcher, Logger: logger})
	historyService := service.NewHistoryService(service.HistoryDependencies{HistoryRepo: store.History(), TicketService: ticketService, Logger: logger})
	historyService.RegisterHandlers(dispatcher)

	enforcer, err := auth.NewPolicyEnforcer()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	app := fiber.New(fiber.Config{Immutable: true, ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{Timeout: 5 * time.Second})
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("helpdesk", "test", nil),
		Metrics:         handlers.NewMetricsHandler(metrics),
		Users:           handlers.NewUsersHandler(authService, "session", false),
		Tickets:         handlers.NewTicketsHandler(ticketService, historyService),
		AdminUsers:      handlers.NewAdminUsersHandler(userService),
		Markdown:        handlers.NewMarkdownHandler(),
		AuthMiddleware:  auth.NewAuthMiddleware(tokens, store.Users(), revocations, "session", logger),
		Enforcer:        enforcer,
		LoginRatePerMin: loginRate,
		Logger:          logger,
	})
	return &testServer{app: app, auth: authService}
}

type apiResponse struct {
	status int
	header http.Header
	body   map[string]any
}

func (r apiResponse) data() map[string]any {
	d, _ := r.body["data"].(map[string]any)
	return d
}

func (r apiResponse) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) apiResponse {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := apiResponse{status: resp.StatusCode, header: resp.Header, body: map[string]any{}}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.body)
	}
	return out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if resp.status != http.StatusOK {
		t.Fatalf("login %s: status %d body %v", email, resp.status, resp.body)
	}
	token, _ := resp.data()["token"].(string)
	if token == "" {
		t.Fatalf("login %s: no token", email)
	}
	return token
}

// approvedUser registers through the API and approves through the admin API.
func (s *testServer) approvedUser(t *testing.T, adminToken, email string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/register", "", map[string]string{"email": email, "password": "password123", "name": email})
	if resp.status != http.StatusCreated {
		t.Fatalf("register %s: %d %v", email, resp.status, resp.body)
	}
	id, _ := resp.data()["id"].(string)
	resp = s.do(t, http.MethodPatch, "/api/admin/users", adminToken, map[string]any{"userId": id, "isActive": true})
	if resp.status != http.StatusOK {
		t.Fatalf("approve %s: %d %v", email, resp.status, resp.body)
	}
	return s.login(t, email, "password123")
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	if _, _, err := s.auth.EnsureAdmin(context.Background(), "admin@example.com", "adminpass1", "Admin"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	return s.login(t, "admin@example.com", "adminpass1")
}

func TestRegistrationApprovalGate(t *testing.T) {
	s := newTestServer(t, 0)

	resp := s.do(t, http.MethodPost, "/api/register", "", map[string]string{"email": "pat@example.com", "password": "password123"})
	if resp.status != http.StatusCreated {
		t.Fatalf("register status = %d", resp.status)
	}
	if resp.data()["isActive"] != false || resp.data()["role"] != "USER" {
		t.Fatalf("register data = %v", resp.data())
	}
	userID := resp.data()["id"].(string)

	resp = s.do(t, http.MethodPost, "/api/register", "", map[string]string{"email": "PAT@example.com", "password": "password123"})
	if resp.status != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", resp.status)
	}

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "pat@example.com", "password": "nope-nope"})
	if resp.status != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", resp.status)
	}
	resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "pat@example.com", "password": "password123"})
	if resp.status != http.StatusForbidden || resp.errorCode() != "PENDING_APPROVAL" {
		t.Fatalf("pending login = %d %v", resp.status, resp.body)
	}
	if resp.header.Get("Set-Cookie") != "" {
		t.Fatal("pending login must not set a session cookie")
	}

	admin := s.adminToken(t)
	resp = s.do(t, http.MethodPatch, "/api/admin/users", admin, map[string]any{"userId": userID, "isActive": true})
	if resp.status != http.StatusOK || resp.data()["isActive"] != true {
		t.Fatalf("approve = %d %v", resp.status, resp.body)
	}

	token := s.login(t, "pat@example.com", "password123")
	resp = s.do(t, http.MethodGet, "/api/tickets", token, nil)
	if resp.status != http.StatusOK {
		t.Fatalf("tickets after approval = %d", resp.status)
	}

	// deactivation applies to the already issued token
	resp = s.do(t, http.MethodPatch, "/api/admin/users", admin, map[string]any{"userId": userID, "isActive": false})
	if resp.status != http.StatusOK {
		t.Fatalf("deactivate = %d", resp.status)
	}
	resp = s.do(t, http.MethodGet, "/api/tickets", token, nil)
	if resp.status != http.StatusForbidden || resp.errorCode() != "PENDING_APPROVAL" {
		t.Fatalf("tickets after deactivation = %d %v", resp.status, resp.body)
	}
	resp = s.do(t, http.MethodGet, "/api/me", token, nil)
	if resp.status != http.StatusOK {
		t.Fatalf("me while pending = %d", resp.status)
	}
}

func TestTicketLifecycleOverAPI(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.adminToken(t)
	owner := s.approvedUser(t, admin, "owner@example.com")
	other := s.approvedUser(t, admin, "other@example.com")

	resp := s.do(t, http.MethodPost, "/api/tickets", owner, map[string]string{"subject": "X", "description": "Y", "priority": "High"})
	if resp.status != http.StatusCreated {
		t.Fatalf("create = %d %v", resp.status, resp.body)
	}
	created := resp.data()
	id := created["id"].(string)
	number := int64(created["number"].(float64))
	if created["status"] != "open" || created["key"] != fmt.Sprintf("INFO-%04d", number) {
		t.Fatalf("created = %v", created)
	}

	resp = s.do(t, http.MethodPost, "/api/tickets", owner, map[string]string{"subject": "X"})
	if resp.status != http.StatusBadRequest {
		t.Fatalf("create missing fields = %d", resp.status)
	}

	byUUID := s.do(t, http.MethodGet, "/api/tickets/"+id, owner, nil)
	byNumber := s.do(t, http.MethodGet, fmt.Sprintf("/api/tickets/%d", number), owner, nil)
	if byUUID.status != http.StatusOK || byNumber.status != http.StatusOK {
		t.Fatalf("get = %d / %d", byUUID.status, byNumber.status)
	}
	a, _ := json.Marshal(byUUID.data())
	b, _ := json.Marshal(byNumber.data())
	if !bytes.Equal(a, b) {
		t.Fatalf("uuid and number lookups differ:\n%s\n%s", a, b)
	}
	if byUUID.header.Get("Deprecation") != "" {
		t.Fatal("canonical lookup should not be deprecated")
	}
	if byNumber.header.Get("Deprecation") != "true" || byNumber.header.Get("Link") != fmt.Sprintf(`</api/tickets/%s>; rel="canonical"`, id) {
		t.Fatalf("alias headers = %v", byNumber.header)
	}
	owner2, _ := byUUID.data()["user"].(map[string]any)
	if owner2["email"] != "owner@example.com" {
		t.Fatalf("owner block = %v", owner2)
	}

	if resp := s.do(t, http.MethodGet, "/api/tickets/not-a-ticket", owner, nil); resp.status != http.StatusBadRequest {
		t.Fatalf("bad id = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/api/tickets/99999", owner, nil); resp.status != http.StatusNotFound {
		t.Fatalf("missing = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/api/tickets/"+id, other, nil); resp.status != http.StatusForbidden {
		t.Fatalf("other get = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/api/tickets/"+id, admin, nil); resp.status != http.StatusOK {
		t.Fatalf("admin get = %d", resp.status)
	}

	resp = s.do(t, http.MethodPatch, "/api/tickets/"+id, owner, map[string]string{"status": "solved", "resolution": "   "})
	if resp.status != http.StatusBadRequest || resp.errorCode() != "VALIDATION_FAILED" {
		t.Fatalf("blank resolution = %d %v", resp.status, resp.body)
	}
	resp = s.do(t, http.MethodPatch, "/api/tickets/"+id, owner, map[string]string{"status": "open", "resolution": "x"})
	if resp.status != http.StatusBadRequest {
		t.Fatalf("reopen = %d", resp.status)
	}
	resp = s.do(t, http.MethodPatch, "/api/tickets/"+id, other, map[string]string{"resolution": "mine now"})
	if resp.status != http.StatusForbidden {
		t.Fatalf("other close = %d", resp.status)
	}

	resp = s.do(t, http.MethodPatch, "/api/tickets/"+id, owner, map[string]string{"status": "solved", "resolution": "Fixed via restart"})
	if resp.status != http.StatusOK || resp.data()["status"] != "solved" || resp.data()["resolution"] != "Fixed via restart" {
		t.Fatalf("close = %d %v", resp.status, resp.body)
	}
	resp = s.do(t, http.MethodPatch, "/api/tickets/"+id, owner, map[string]string{"resolution": "again"})
	if resp.status != http.StatusConflict {
		t.Fatalf("re-close = %d", resp.status)
	}

	list := s.do(t, http.MethodGet, "/api/tickets?status=solved", owner, nil)
	items, _ := list.data()["items"].([]any)
	if list.status != http.StatusOK || len(items) != 1 {
		t.Fatalf("list solved = %d %v", list.status, list.body)
	}
	otherList := s.do(t, http.MethodGet, "/api/tickets", other, nil)
	if items, _ := otherList.data()["items"].([]any); len(items) != 0 {
		t.Fatalf("other sees %d tickets", len(items))
	}

	history := s.do(t, http.MethodGet, "/api/tickets/"+id+"/history", owner, nil)
	entries, _ := history.body["data"].([]any)
	if history.status != http.StatusOK || len(entries) != 2 {
		t.Fatalf("history = %d %v", history.status, history.body)
	}
	if last, _ := entries[1].(map[string]any); last["changeType"] != "STATUS_CHANGE" {
		t.Fatalf("last history entry = %v", last)
	}
	if resp := s.do(t, http.MethodGet, "/api/tickets/"+id+"/history", other, nil); resp.status != http.StatusForbidden {
		t.Fatalf("other history = %d", resp.status)
	}

	if resp := s.do(t, http.MethodDelete, "/api/tickets/"+id, other, nil); resp.status != http.StatusForbidden {
		t.Fatalf("other delete = %d", resp.status)
	}
	if resp := s.do(t, http.MethodDelete, "/api/tickets/"+id, owner, nil); resp.status != http.StatusNoContent {
		t.Fatalf("owner delete = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/api/tickets/"+id, owner, nil); resp.status != http.StatusNotFound {
		t.Fatalf("get after delete = %d", resp.status)
	}
}

func TestTrailingSlashPathsPassPolicy(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.adminToken(t)
	owner := s.approvedUser(t, admin, "slash@example.com")

	resp := s.do(t, http.MethodPost, "/api/tickets/", owner, map[string]string{"subject": "X", "description": "Y", "priority": "Low"})
	if resp.status != http.StatusCreated {
		t.Fatalf("POST /api/tickets/ = %d %v", resp.status, resp.body)
	}
	list := s.do(t, http.MethodGet, "/api/tickets/", owner, nil)
	if items, _ := list.data()["items"].([]any); list.status != http.StatusOK || len(items) != 1 {
		t.Fatalf("GET /api/tickets/ = %d %v", list.status, list.body)
	}
	if resp := s.do(t, http.MethodGet, "/api/admin/users/", owner, nil); resp.status != http.StatusForbidden {
		t.Fatalf("user on /api/admin/users/ = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/api/admin/users/", admin, nil); resp.status != http.StatusOK {
		t.Fatalf("admin on /api/admin/users/ = %d", resp.status)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.adminToken(t)
	user := s.approvedUser(t, admin, "user@example.com")

	if resp := s.do(t, http.MethodGet, "/api/admin/users", "", nil); resp.status != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/api/admin/users", user, nil); resp.status != http.StatusForbidden {
		t.Fatalf("user = %d", resp.status)
	}
	resp := s.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	users, _ := resp.body["data"].([]any)
	if resp.status != http.StatusOK || len(users) != 2 {
		t.Fatalf("admin list = %d %v", resp.status, resp.body)
	}

	if resp := s.do(t, http.MethodPatch, "/api/admin/users", admin, map[string]any{"userId": "missing", "isActive": true}); resp.status != http.StatusNotFound {
		t.Fatalf("missing user = %d", resp.status)
	}
	if resp := s.do(t, http.MethodPatch, "/api/admin/users", admin, map[string]any{"userId": "x", "role": "ROOT"}); resp.status != http.StatusBadRequest {
		t.Fatalf("bad role = %d", resp.status)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.adminToken(t)

	if resp := s.do(t, http.MethodPost, "/api/auth/logout", admin, nil); resp.status != http.StatusNoContent {
		t.Fatalf("logout = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/api/me", admin, nil); resp.status != http.StatusUnauthorized {
		t.Fatalf("me after logout = %d", resp.status)
	}
}

func TestSessionCookieAuthenticates(t *testing.T) {
	s := newTestServer(t, 0)
	if _, _, err := s.auth.EnsureAdmin(context.Background(), "admin@example.com", "adminpass1", ""); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(`{"email":"admin@example.com","password":"adminpass1"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil || !session.HttpOnly {
		t.Fatalf("session cookie = %+v", session)
	}

	me := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	me.AddCookie(&http.Cookie{Name: "session", Value: session.Value})
	resp, err = s.app.Test(me, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me via cookie = %d", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	creds := map[string]string{"email": "nobody@example.com", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		if resp := s.do(t, http.MethodPost, "/api/auth/login", "", creds); resp.status != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d", i, resp.status)
		}
	}
	resp := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	if resp.status != http.StatusTooManyRequests || resp.errorCode() != "RATE_LIMITED" {
		t.Fatalf("limited = %d %v", resp.status, resp.body)
	}
}

func TestMarkdownPreviewAndProbes(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.adminToken(t)

	if resp := s.do(t, http.MethodPost, "/api/markdown/preview", "", map[string]string{"text": "x"}); resp.status != http.StatusUnauthorized {
		t.Fatalf("anonymous preview = %d", resp.status)
	}
	resp := s.do(t, http.MethodPost, "/api/markdown/preview", admin, map[string]string{"text": "**done**"})
	if resp.status != http.StatusOK || resp.body["html"] != "<p><strong>done</strong></p>\n" {
		t.Fatalf("preview = %d %v", resp.status, resp.body)
	}

	if resp := s.do(t, http.MethodGet, "/health/live", "", nil); resp.status != http.StatusOK || resp.body["status"] != "alive" {
		t.Fatalf("live = %d %v", resp.status, resp.body)
	}
	if resp := s.do(t, http.MethodGet, "/health/ready", "", nil); resp.status != http.StatusOK {
		t.Fatalf("ready = %d", resp.status)
	}
	if resp := s.do(t, http.MethodGet, "/nope", "", nil); resp.status != http.StatusNotFound || resp.errorCode() != "NOT_FOUND" {
		t.Fatalf("unknown route = %d %v", resp.status, resp.body)
	}

	resp = s.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.status != http.StatusOK {
		t.Fatalf("metrics = %d", resp.status)
	}
	requests, _ := resp.data()["requests"].(map[string]any)
	if len(requests) == 0 {
		t.Fatalf("metrics snapshot empty: %v", resp.body)
	}
}

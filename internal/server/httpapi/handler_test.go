package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/standard/dreamcalendar/internal/common"
	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeService struct {
	createOK  bool
	createErr error
	created   services.UserDTO

	pair    *services.TokenPair
	pairErr error

	status    services.AuthStatus
	statusErr error
	gotToken  string

	users   []services.UserDTO
	user    *services.UserDTO
	findErr error
	gotName string

	deleted   bool
	deleteErr error
}

func (f *fakeService) Create(_ context.Context, in services.UserDTO) (bool, error) {
	f.created = in
	return f.createOK, f.createErr
}

func (f *fakeService) LogInByEmailPassword(context.Context, services.Credentials) (*services.TokenPair, error) {
	return f.pair, f.pairErr
}

func (f *fakeService) LogInByAccessToken(_ context.Context, token string) (services.AuthStatus, error) {
	f.gotToken = token
	return f.status, f.statusErr
}

func (f *fakeService) UpdateAccessToken(_ context.Context, token string) (*services.TokenPair, error) {
	f.gotToken = token
	return f.pair, f.pairErr
}

func (f *fakeService) FindAll(context.Context) ([]services.UserDTO, error) {
	return f.users, f.findErr
}

func (f *fakeService) FindByID(context.Context, int64) (*services.UserDTO, error) {
	return f.user, f.findErr
}

func (f *fakeService) FindByEmail(context.Context, string) (*services.UserDTO, error) {
	return f.user, f.findErr
}

func (f *fakeService) FindUsersByUsername(_ context.Context, name string) ([]services.UserDTO, error) {
	f.gotName = name
	return f.users, f.findErr
}

func (f *fakeService) Delete(context.Context, int64) (bool, error) {
	return f.deleted, f.deleteErr
}

func do(t *testing.T, svc UserService, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	r := NewRouter(svc, logging.Nop{}, nil)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateUser(t *testing.T) {
	body := `{"email":"a@x.io","name":"Alice","password":"pw"}`

	tests := []struct {
		name string
		svc  *fakeService
		body string
		want int
	}{
		{name: "created", svc: &fakeService{createOK: true}, body: body, want: http.StatusCreated},
		{name: "duplicate", svc: &fakeService{createErr: common.ErrorAlreadyExists}, body: body, want: http.StatusConflict},
		{name: "hashing unavailable", svc: &fakeService{}, body: body, want: http.StatusUnprocessableEntity},
		{name: "infrastructure", svc: &fakeService{createErr: errors.New("db down")}, body: body, want: http.StatusInternalServerError},
		{name: "bad email", svc: &fakeService{createOK: true}, body: `{"email":"nope","name":"A","password":"pw"}`, want: http.StatusBadRequest},
		{name: "missing password", svc: &fakeService{createOK: true}, body: `{"email":"a@x.io","name":"A"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, tt.svc, http.MethodPost, "/api/users", tt.body, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCreateUser_PassesPlaintext(t *testing.T) {
	svc := &fakeService{createOK: true}
	do(t, svc, http.MethodPost, "/api/users", `{"email":"a@x.io","name":"Alice","password":"pw"}`, nil)

	assert.Equal(t, services.UserDTO{Email: "a@x.io", Name: "Alice", Password: "pw"}, svc.created)
}

func TestInternalError_DoesNotLeak(t *testing.T) {
	svc := &fakeService{createErr: errors.New("pq: password for user postgres")}
	w := do(t, svc, http.MethodPost, "/api/users", `{"email":"a@x.io","name":"A","password":"pw"}`, nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "postgres")
}

func TestLogin(t *testing.T) {
	body := `{"email":"a@x.io","password":"pw"}`

	w := do(t, &fakeService{pair: &services.TokenPair{AccessToken: "a", RefreshToken: "r"}}, http.MethodPost, "/api/auth/login", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pair services.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	assert.Equal(t, services.TokenPair{AccessToken: "a", RefreshToken: "r"}, pair)

	w = do(t, &fakeService{}, http.MethodPost, "/api/auth/login", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, &fakeService{pairErr: errors.New("boom")}, http.MethodPost, "/api/auth/login", body, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, &fakeService{}, http.MethodPost, "/api/auth/login", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		svc     *fakeService
		headers map[string]string
		want    int
	}{
		{name: "accepted header", svc: &fakeService{status: services.Accepted}, headers: map[string]string{"access_token": "tok"}, want: http.StatusAccepted},
		{name: "accepted bearer", svc: &fakeService{status: services.Accepted}, headers: map[string]string{"Authorization": "Bearer tok"}, want: http.StatusAccepted},
		{name: "expired", svc: &fakeService{status: services.Unauthorized}, headers: map[string]string{"access_token": "tok"}, want: http.StatusUnauthorized},
		{name: "bad request", svc: &fakeService{status: services.BadRequest}, headers: map[string]string{"access_token": "tok"}, want: http.StatusBadRequest},
		{name: "missing", svc: &fakeService{status: services.Accepted}, want: http.StatusBadRequest},
		{name: "service error", svc: &fakeService{statusErr: errors.New("boom")}, headers: map[string]string{"access_token": "tok"}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, tt.svc, http.MethodPost, "/api/auth/validate", "", tt.headers)
			assert.Equal(t, tt.want, w.Code)
			if len(tt.headers) > 0 && tt.svc.statusErr == nil {
				assert.Equal(t, "tok", tt.svc.gotToken)
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	svc := &fakeService{pair: &services.TokenPair{AccessToken: "a2", RefreshToken: "r"}}
	w := do(t, svc, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"r"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r", svc.gotToken)

	w = do(t, &fakeService{}, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"r"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, &fakeService{}, http.MethodPost, "/api/auth/refresh", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserLookups(t *testing.T) {
	alice := &services.UserDTO{ID: 1, Email: "a@x.io", Name: "Alice", Role: "USER"}
	svc := &fakeService{users: []services.UserDTO{*alice}, user: alice}

	w := do(t, svc, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []services.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
	assert.NotContains(t, w.Body.String(), "password")

	w = do(t, svc, http.MethodGet, "/api/users/search?name=ali", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ali", svc.gotName)

	w = do(t, svc, http.MethodGet, "/api/users/1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, svc, http.MethodGet, "/api/users/by-email?email=a@x.io", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, svc, http.MethodGet, "/api/users/by-email", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, svc, http.MethodGet, "/api/users/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missing := &fakeService{}
	assert.Equal(t, http.StatusNotFound, do(t, missing, http.MethodGet, "/api/users/2", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, missing, http.MethodGet, "/api/users/by-email?email=b@x.io", "", nil).Code)

	broken := &fakeService{findErr: errors.New("db down")}
	assert.Equal(t, http.StatusInternalServerError, do(t, broken, http.MethodGet, "/api/users", "", nil).Code)
}

func TestDeleteUser(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, do(t, &fakeService{deleted: true}, http.MethodDelete, "/api/users/1", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, &fakeService{}, http.MethodDelete, "/api/users/1", "", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, &fakeService{deleteErr: errors.New("x")}, http.MethodDelete, "/api/users/1", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, &fakeService{}, http.MethodDelete, "/api/users/0", "", nil).Code)
}

func TestHealth(t *testing.T) {
	r := NewRouter(&fakeService{}, logging.Nop{}, func(context.Context) error { return errors.New("db down") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	r = NewRouter(&fakeService{}, logging.Nop{}, func(context.Context) error { return nil })
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPServer_RunStopsOnCancel(t *testing.T) {
	srv := NewHTTPServer("127.0.0.1:0", NewRouter(&fakeService{}, logging.Nop{}, nil), logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("HTTP server did not stop")
	}
}

func TestHTTPServer_BadAddress(t *testing.T) {
	srv := NewHTTPServer("127.0.0.1:99999", http.NotFoundHandler(), logging.Nop{})
	require.Error(t, srv.Run(context.Background()))
}

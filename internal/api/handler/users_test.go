package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/postcoach/postcoach/internal/api/handler"
	"github.com/postcoach/postcoach/internal/store"
	"github.com/postcoach/postcoach/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserStore struct {
	upserted  *models.User
	upsertErr error

	historyViewer   int64
	historyAnalyzed int64
	historyErr      error
}

func (m *mockUserStore) UpsertUser(_ context.Context, user *models.User) (*models.User, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.upserted = user
	return user, nil
}

func (m *mockUserStore) InsertAnalysisHistory(_ context.Context, viewerFID, analyzedFID int64, _ *string) error {
	if m.historyErr != nil {
		return m.historyErr
	}
	m.historyViewer = viewerFID
	m.historyAnalyzed = analyzedFID
	return nil
}

func historyRouter(st handler.UserStore) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/users/{fid}/history", handler.NewHistoryHandler(st))
	return r
}

func TestLoginHandler_Success(t *testing.T) {
	st := &mockUserStore{}

	body := `{"fid":42,"username":"alice","display_name":"Alice","pfp_url":"https://img.example/a.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.NewLoginHandler(st)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, st.upserted)
	assert.Equal(t, int64(42), st.upserted.FID)
	assert.Equal(t, "alice", st.upserted.Username)
	require.NotNil(t, st.upserted.DisplayName)
	assert.Equal(t, "Alice", *st.upserted.DisplayName)

	var resp struct {
		Data models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Data.Username)
}

func TestLoginHandler_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing fid", `{"username":"alice"}`},
		{"negative fid", `{"fid":-1,"username":"alice"}`},
		{"missing username", `{"fid":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockUserStore{}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.NewLoginHandler(st)(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
			assert.Nil(t, st.upserted)
		})
	}
}

func TestLoginHandler_StoreError(t *testing.T) {
	st := &mockUserStore{upsertErr: errors.New("connection refused")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"fid":42,"username":"alice"}`))
	rec := httptest.NewRecorder()

	handler.NewLoginHandler(st)(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistoryHandler_Success(t *testing.T) {
	st := &mockUserStore{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/42/history",
		strings.NewReader(`{"analyzed_fid":7,"analyzed_username":"bob"}`))
	rec := httptest.NewRecorder()

	historyRouter(st).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(42), st.historyViewer)
	assert.Equal(t, int64(7), st.historyAnalyzed)
}

func TestHistoryHandler_UnknownUser(t *testing.T) {
	st := &mockUserStore{historyErr: store.ErrNotFound}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/42/history",
		strings.NewReader(`{"analyzed_fid":7}`))
	rec := httptest.NewRecorder()

	historyRouter(st).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_NOT_FOUND")
}

func TestHistoryHandler_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"bad viewer fid", "/api/v1/users/abc/history", `{"analyzed_fid":7}`},
		{"zero viewer fid", "/api/v1/users/0/history", `{"analyzed_fid":7}`},
		{"invalid json", "/api/v1/users/42/history", `{`},
		{"missing analyzed fid", "/api/v1/users/42/history", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockUserStore{}
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			historyRouter(st).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatcher/taskchat/pkg/httpx"
	"github.com/hatcher/taskchat/pkg/util"
)

func newTestService(handler http.HandlerFunc) (Service, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := httpx.NewDefaultClient(server.URL)
	client.SetTokenSource(func() string { return "test-token" })
	return NewService(client), server
}

func TestCreate(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/5/tasks", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var params CreateParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "buy milk", params.Title)
		assert.False(t, params.Completed)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Task{
			ID: 1, UserID: 5, Title: params.Title, Completed: false,
			CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
		})
	})
	defer server.Close()

	task, err := svc.Create(context.Background(), 5, CreateParams{Title: "buy milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.ID)
	assert.Equal(t, "buy milk", task.Title)
}

func TestListKeepsServerOrder(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/5/tasks", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Task{
			{ID: 3, Title: "c"},
			{ID: 1, Title: "a"},
			{ID: 2, Title: "b"},
		})
	})
	defer server.Close()

	tasks, err := svc.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, int64(3), tasks[0].ID)
	assert.Equal(t, int64(1), tasks[1].ID)
	assert.Equal(t, int64(2), tasks[2].ID)
}

func TestToggleCompletion(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/5/tasks/42/complete", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("completed"))
		// 切换完成状态不带请求体
		assert.Equal(t, "", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Task{ID: 42, UserID: 5, Completed: true})
	})
	defer server.Close()

	task, err := svc.ToggleCompletion(context.Background(), 5, 42, true)
	require.NoError(t, err)
	assert.True(t, task.Completed)
}

func TestUpdateFullReplace(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/5/tasks/7", r.URL.Path)

		var params UpdateParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "new title", params.Title)
		assert.Equal(t, "", params.Description)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Task{ID: 7, Title: params.Title})
	})
	defer server.Close()

	task, err := svc.Update(context.Background(), 5, 7, UpdateParams{Title: "new title"})
	require.NoError(t, err)
	assert.Equal(t, "new title", task.Title)
}

func TestPatchResolve(t *testing.T) {
	current := Task{ID: 7, Title: "old title", Description: "old desc", Completed: false}

	params := Patch{Title: util.Of("new title")}.Resolve(current)
	assert.Equal(t, "new title", params.Title)
	assert.Equal(t, "old desc", params.Description)
	assert.False(t, params.Completed)

	params = Patch{Completed: util.Of(true), Description: util.Of("")}.Resolve(current)
	assert.Equal(t, "old title", params.Title)
	assert.Equal(t, "", params.Description, "explicit empty string wins over the current value")
	assert.True(t, params.Completed)
}

func TestDelete(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/5/tasks/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	require.NoError(t, svc.Delete(context.Background(), 5, 7))
}

func TestGetNotFoundPropagates(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Task not found"}`))
	})
	defer server.Close()

	_, err := svc.Get(context.Background(), 5, 99)
	require.Error(t, err)
	var statusErr *httpx.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "Task not found", statusErr.Message)
}

func TestUnauthorizedSentinel(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	_, err := svc.List(context.Background(), 5)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

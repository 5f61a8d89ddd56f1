package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskhub/internal/api/middleware"
	"taskhub/internal/model"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
)

type mockTaskStore struct {
	listFunc    func(ctx context.Context, ownerID uint) ([]model.Task, error)
	createFunc  func(ctx context.Context, task *model.Task) error
	getFunc     func(ctx context.Context, ownerID, id uint) (*model.Task, error)
	updateFunc  func(ctx context.Context, ownerID, id uint, updates map[string]interface{}) (*model.Task, error)
	deleteFunc  func(ctx context.Context, ownerID, id uint) error
	createCalls int
}

func (m *mockTaskStore) ListByOwner(ctx context.Context, ownerID uint) ([]model.Task, error) {
	return m.listFunc(ctx, ownerID)
}

func (m *mockTaskStore) Create(ctx context.Context, task *model.Task) error {
	m.createCalls++
	return m.createFunc(ctx, task)
}

func (m *mockTaskStore) GetByID(ctx context.Context, ownerID, id uint) (*model.Task, error) {
	return m.getFunc(ctx, ownerID, id)
}

func (m *mockTaskStore) Update(ctx context.Context, ownerID, id uint, updates map[string]interface{}) (*model.Task, error) {
	return m.updateFunc(ctx, ownerID, id, updates)
}

func (m *mockTaskStore) Delete(ctx context.Context, ownerID, id uint) error {
	return m.deleteFunc(ctx, ownerID, id)
}

func newTaskTestServer(tasks TaskStore) (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	s := &Server{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tasks:  tasks,
	}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetCurrentUser(c, &model.User{ID: 1, Username: "alice", Email: "alice@x.com"})
	})
	r.GET("/tasks", s.handleListTasks)
	r.POST("/tasks", s.handleCreateTask)
	r.GET("/tasks/:id", s.handleGetTask)
	r.PUT("/tasks/:id", s.handleUpdateTask)
	r.DELETE("/tasks/:id", s.handleDeleteTask)
	return s, r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTask_Normal(t *testing.T) {
	tasks := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Task) error {
			task.ID = 1
			return nil
		},
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodPost, "/tasks", []byte(`{"title":"buy milk","priority":"High"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if tasks.createCalls != 1 {
		t.Fatalf("expected create task to be called")
	}
}

func TestCreateTask_OwnerForcedToCaller(t *testing.T) {
	var created model.Task
	tasks := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Task) error {
			created = *task
			return nil
		},
	}
	_, r := newTaskTestServer(tasks)

	// owner 字段即便随 body 提交也必须被忽略
	doJSON(t, r, http.MethodPost, "/tasks", []byte(`{"title":"t","owner":99}`))
	if created.UserID != 1 {
		t.Fatalf("owner must come from the session, got %d", created.UserID)
	}
}

func TestCreateTask_CompletedCoercion(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"string yes", `{"title":"t","completed":"yes"}`, true},
		{"string YES", `{"title":"t","completed":"YES"}`, true},
		{"string no", `{"title":"t","completed":"no"}`, false},
		{"bool true", `{"title":"t","completed":true}`, true},
		{"bool false", `{"title":"t","completed":false}`, false},
		{"absent", `{"title":"t"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var created model.Task
			tasks := &mockTaskStore{
				createFunc: func(ctx context.Context, task *model.Task) error {
					created = *task
					return nil
				},
			}
			_, r := newTaskTestServer(tasks)

			w := doJSON(t, r, http.MethodPost, "/tasks", []byte(tc.body))
			if w.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
			}
			if created.Completed != tc.want {
				t.Fatalf("completed = %v, want %v", created.Completed, tc.want)
			}
		})
	}
}

func TestCreateTask_InvalidPriority(t *testing.T) {
	tasks := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Task) error { return nil },
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodPost, "/tasks", []byte(`{"title":"t","priority":"Urgent"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if tasks.createCalls != 0 {
		t.Fatalf("invalid priority must not reach the store")
	}
}

func TestCreateTask_DefaultPriorityLow(t *testing.T) {
	var created model.Task
	tasks := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Task) error {
			created = *task
			return nil
		},
	}
	_, r := newTaskTestServer(tasks)

	doJSON(t, r, http.MethodPost, "/tasks", []byte(`{"title":"t"}`))
	if created.Priority != model.PriorityLow {
		t.Fatalf("priority = %q, want Low", created.Priority)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	tasks := &mockTaskStore{
		getFunc: func(ctx context.Context, ownerID, id uint) (*model.Task, error) {
			return nil, store.ErrTaskNotFound
		},
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodGet, "/tasks/42", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetTask_BadID(t *testing.T) {
	tasks := &mockTaskStore{
		getFunc: func(ctx context.Context, ownerID, id uint) (*model.Task, error) {
			t.Fatalf("store must not be hit for a malformed id")
			return nil, nil
		},
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodGet, "/tasks/banana", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateTask_PartialUpdates(t *testing.T) {
	var gotUpdates map[string]interface{}
	tasks := &mockTaskStore{
		updateFunc: func(ctx context.Context, ownerID, id uint, updates map[string]interface{}) (*model.Task, error) {
			gotUpdates = updates
			return &model.Task{ID: id, UserID: ownerID, Title: "t", Completed: true}, nil
		},
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodPut, "/tasks/3", []byte(`{"completed":"yes","priority":"Medium"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotUpdates["completed"] != true {
		t.Fatalf("completed update = %v, want true", gotUpdates["completed"])
	}
	if gotUpdates["priority"] != model.PriorityMedium {
		t.Fatalf("priority update = %v, want Medium", gotUpdates["priority"])
	}
	if _, ok := gotUpdates["title"]; ok {
		t.Fatalf("absent fields must not be updated")
	}
}

func TestUpdateTask_NoUpdates(t *testing.T) {
	tasks := &mockTaskStore{
		updateFunc: func(ctx context.Context, ownerID, id uint, updates map[string]interface{}) (*model.Task, error) {
			t.Fatalf("store must not be hit for an empty update")
			return nil, nil
		},
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodPut, "/tasks/3", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	tasks := &mockTaskStore{
		deleteFunc: func(ctx context.Context, ownerID, id uint) error {
			if ownerID != 1 || id != 5 {
				t.Fatalf("delete scoped wrong: owner=%d id=%d", ownerID, id)
			}
			return nil
		},
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodDelete, "/tasks/5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	tasks.deleteFunc = func(ctx context.Context, ownerID, id uint) error {
		return store.ErrTaskNotFound
	}
	w = doJSON(t, r, http.MethodDelete, "/tasks/6", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListTasks(t *testing.T) {
	now := time.Now()
	tasks := &mockTaskStore{
		listFunc: func(ctx context.Context, ownerID uint) ([]model.Task, error) {
			if ownerID != 1 {
				t.Fatalf("list scoped to wrong owner: %d", ownerID)
			}
			return []model.Task{
				{ID: 2, UserID: 1, Title: "newer", CreatedAt: now},
				{ID: 1, UserID: 1, Title: "older", CreatedAt: now.Add(-time.Hour)},
			}, nil
		},
	}
	_, r := newTaskTestServer(tasks)

	w := doJSON(t, r, http.MethodGet, "/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Success bool         `json:"success"`
		Tasks   []model.Task `json:"tasks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Tasks) != 2 || body.Tasks[0].Title != "newer" {
		t.Fatalf("unexpected tasks: %+v", body.Tasks)
	}
}

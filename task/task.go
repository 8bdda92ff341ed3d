package task

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hatcher/taskchat/pkg/httpx"
)

// Service 任务后端接口
//
// Every operation is scoped by an explicit numeric user id; the backend
// enforces ownership, the client just routes. Errors come back normalized
// by the request layer and are propagated unchanged.
type Service interface {
	Create(ctx context.Context, userID int64, params CreateParams) (*Task, error)
	List(ctx context.Context, userID int64) ([]Task, error)
	Get(ctx context.Context, userID, taskID int64) (*Task, error)
	Update(ctx context.Context, userID, taskID int64, params UpdateParams) (*Task, error)
	ToggleCompletion(ctx context.Context, userID, taskID int64, completed bool) (*Task, error)
	Delete(ctx context.Context, userID, taskID int64) error
}

type service struct {
	client *httpx.Client
}

func NewService(client *httpx.Client) Service {
	return &service{client: client}
}

func (s *service) Create(ctx context.Context, userID int64, params CreateParams) (*Task, error) {
	var task Task
	err := s.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodPost(),
		httpx.WithPath(fmt.Sprintf("/api/%d/tasks", userID)),
		httpx.WithBody(params),
	), &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *service) List(ctx context.Context, userID int64) ([]Task, error) {
	var tasks []Task
	err := s.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodGet(),
		httpx.WithPath(fmt.Sprintf("/api/%d/tasks", userID)),
	), &tasks)
	if err != nil {
		return nil, err
	}
	// 保持后端返回顺序，客户端不重排
	return tasks, nil
}

func (s *service) Get(ctx context.Context, userID, taskID int64) (*Task, error) {
	var task Task
	err := s.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodGet(),
		httpx.WithPath(fmt.Sprintf("/api/%d/tasks/%d", userID, taskID)),
	), &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *service) Update(ctx context.Context, userID, taskID int64, params UpdateParams) (*Task, error) {
	var task Task
	err := s.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodPut(),
		httpx.WithPath(fmt.Sprintf("/api/%d/tasks/%d", userID, taskID)),
		httpx.WithBody(params),
	), &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ToggleCompletion flips the completion flag via the dedicated endpoint,
// with the target state passed as a query parameter rather than a body.
func (s *service) ToggleCompletion(ctx context.Context, userID, taskID int64, completed bool) (*Task, error) {
	var task Task
	err := s.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodPatch(),
		httpx.WithPath(fmt.Sprintf("/api/%d/tasks/%d/complete", userID, taskID)),
		httpx.WithQueryParam("completed", strconv.FormatBool(completed)),
	), &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *service) Delete(ctx context.Context, userID, taskID int64) error {
	return s.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodDelete(),
		httpx.WithPath(fmt.Sprintf("/api/%d/tasks/%d", userID, taskID)),
	), nil)
}

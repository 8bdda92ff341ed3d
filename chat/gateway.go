package chat

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/hatcher/taskchat/pkg/httpx"
)

// Gateway 对话后端接口
type Gateway interface {
	SendMessage(ctx context.Context, userID int64, req ChatRequest) (*ChatResponse, error)
	// GetConversation returns (nil, nil) when the conversation does not
	// exist; only transport and server failures surface as errors.
	GetConversation(ctx context.Context, userID int64, conversationID string) (*Conversation, error)
}

type gateway struct {
	client *httpx.Client
}

func NewGateway(client *httpx.Client) Gateway {
	return &gateway{client: client}
}

func (g *gateway) SendMessage(ctx context.Context, userID int64, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	err := g.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodPost(),
		httpx.WithPath(fmt.Sprintf("/api/%d/chat", userID)),
		httpx.WithBody(req),
	), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *gateway) GetConversation(ctx context.Context, userID int64, conversationID string) (*Conversation, error) {
	var conv Conversation
	err := g.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodGet(),
		httpx.WithPath(fmt.Sprintf("/api/%d/conversations/%s", userID, conversationID)),
	), &conv)
	if err != nil {
		// 404/422 都视为会话不存在
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusUnprocessableEntity) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

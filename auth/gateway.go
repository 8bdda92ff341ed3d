package auth

import (
	"context"

	"github.com/hatcher/taskchat/pkg/httpx"
)

// Gateway 认证后端接口
type Gateway interface {
	ValidateToken(ctx context.Context, token string) (*TokenInfo, error)
	CurrentUser(ctx context.Context) (*User, error)
	Refresh(ctx context.Context) (string, error)
}

type gateway struct {
	client *httpx.Client
}

func NewGateway(client *httpx.Client) Gateway {
	return &gateway{client: client}
}

func (g *gateway) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	var info TokenInfo
	err := g.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodPost(),
		httpx.WithPath("/auth/validate-jwt"),
		httpx.WithBody(map[string]string{"token": token}),
		// 凭证属于敏感信息，日志里做脱敏
		httpx.WithSensitive(true),
	), &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (g *gateway) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	err := g.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodGet(),
		httpx.WithPath("/auth/current-user"),
	), &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type refreshResponse struct {
	Token string `json:"token"`
}

// Refresh 置换新凭证
func (g *gateway) Refresh(ctx context.Context) (string, error) {
	var resp refreshResponse
	err := g.client.DoWithPtr(httpx.NewRequestOption(
		httpx.WithContext(ctx),
		httpx.WithMethodPost(),
		httpx.WithPath("/auth/refresh"),
		httpx.WithSensitive(true),
	), &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

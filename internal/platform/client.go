package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.social-platform.example/v1"

// APIError 上游返回的非 2xx 结果
type APIError struct {
	Code int
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform: status %d: %s", e.Code, e.Body)
}

// Transient 是否可重试。只认 429/500/503/504，未知状态码一律按永久失败处理（fail closed）
func (e *APIError) Transient() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient 网络层错误同样视为瞬时（连接断开、超时等）
func IsTransient(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Transient()
	}
	return err != nil
}

// Client 外部社交平台适配器：一次反应/评论调用，成功或分类后的失败
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type actionReq struct {
	ActorURN string `json:"actor_urn"`
	PostURN  string `json:"post_urn"`
	Reaction string `json:"reaction,omitempty"`
	Text     string `json:"text,omitempty"`
}

// PerformReaction 以 actor 名义对帖子做一次反应
func (c *Client) PerformReaction(ctx context.Context, actorURN, postURN, reaction string) error {
	return c.do(ctx, "/reactions", actionReq{ActorURN: actorURN, PostURN: postURN, Reaction: reaction})
}

// PerformComment 以 actor 名义发布一条评论
func (c *Client) PerformComment(ctx context.Context, actorURN, postURN, text string) error {
	return c.do(ctx, "/comments", actionReq{ActorURN: actorURN, PostURN: postURN, Text: text})
}

// FetchMetrics 读取帖子在平台侧的互动指标（resync 用）
func (c *Client) FetchMetrics(ctx context.Context, postURN string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/posts/metrics?urn="+postURN, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, &APIError{Code: resp.StatusCode, Body: string(body)}
	}
	var out struct {
		Reactions int64 `json:"reactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Reactions, nil
}

func (c *Client) do(ctx context.Context, path string, payload actionReq) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{Code: resp.StatusCode, Body: string(b)}
}

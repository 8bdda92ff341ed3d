package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hatcher/taskchat/pkg/logs"
)

// TokenSource 返回当前凭证；为空表示未登录
type TokenSource func() string

// Client 通用HTTP客户端工具
type Client struct {
	Client  *http.Client
	BaseUrl string
	tokens  TokenSource
}

// NewClient 创建一个新的HTTPClient实例
func NewClient(baseUrl string, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Timeout: timeout,
		},
		BaseUrl: baseUrl,
	}
}

// NewTransportClient 创建一个新的HTTPClient实例
func NewTransportClient(baseUrl string, transport http.RoundTripper, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		BaseUrl: baseUrl,
	}
}

// NewDefaultClient 创建一个新的HTTPClient实例，无显式超时（走传输层默认）
func NewDefaultClient(baseUrl string) *Client {
	return &Client{
		Client:  &http.Client{},
		BaseUrl: baseUrl,
	}
}

// SetTokenSource 设置凭证来源；凭证存在时自动附加Bearer头
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// buildRequest 构建HTTP请求
func (c *Client) buildRequest(options *RequestOption) (*http.Request, error) {
	var body io.Reader
	hasBody := options.Body != nil
	if hasBody {
		if raw, ok := options.Body.([]byte); ok {
			body = bytes.NewBuffer(raw)
		} else {
			jsonData, err := json.Marshal(options.Body)
			if err != nil {
				return nil, fmt.Errorf("解析http请求结果失败: %v", err)
			}
			body = bytes.NewBuffer(jsonData)
		}
	}
	// 处理查询参数
	reqURL := c.BaseUrl + options.Path
	if len(options.Query) > 0 {
		params := url.Values{}
		for key, value := range options.Query {
			params.Add(key, value)
		}
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}
	ctx := options.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, options.Method.String(), reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %v", err)
	}
	// 设置请求头
	for key, value := range options.Headers {
		req.Header.Set(key, value)
	}
	// 凭证存在时附加Bearer头；调用方显式设置的Authorization优先
	if c.tokens != nil && req.Header.Get("Authorization") == "" {
		if token := c.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	// 有请求体且未显式指定时默认JSON
	if hasBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do 发送HTTP请求并返回响应
func (c *Client) Do(options *RequestOption) (*http.Response, error) {
	requestTime := time.Now()
	request, err := c.buildRequest(options)
	if err != nil {
		return nil, err
	}
	if options.PrintLog {
		r := &RequestLog{
			Timestamp: requestTime.Format("2006-01-02 15:04:05.000"),
			Method:    options.Method.String(),
			URL:       request.URL.String(),
			Headers:   options.Headers,
			Body:      options.Body,
			RequestID: options.RequestID,
		}
		if raw, ok := options.Body.([]byte); ok {
			r.Body = string(raw)
		} else if options.Body != nil {
			jsonData, err := json.Marshal(options.Body)
			if err != nil {
				logs.Errorf("解析http请求结果失败: %v", err)
			} else {
				r.Body = string(jsonData)
			}
		}
		LogRequestJSON(r, options.Sensitive)
	}
	response, err := c.Client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	// 读取响应体内容到缓冲区
	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	// 创建可以重复读取的响应
	bufferedResp := &BufferedResponse{
		Response: &http.Response{
			Status:           response.Status,
			StatusCode:       response.StatusCode,
			Proto:            response.Proto,
			ProtoMajor:       response.ProtoMajor,
			ProtoMinor:       response.ProtoMinor,
			Header:           response.Header,
			ContentLength:    int64(len(bodyBytes)),
			TransferEncoding: response.TransferEncoding,
			Close:            response.Close,
			Uncompressed:     response.Uncompressed,
			Trailer:          response.Trailer,
			Request:          response.Request,
			TLS:              response.TLS,
		},
		bodyBuffer: bodyBytes,
	}
	bufferedResp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	responseTime := time.Now()
	if options.PrintLog {
		LogResponseJSON(&ResponseLog{
			Timestamp:  responseTime.Format("2006-01-02 15:04:05.000"),
			StatusCode: response.StatusCode,
			RequestID:  options.RequestID,
			DurationMs: responseTime.Sub(requestTime).Milliseconds(),
			Body:       string(bodyBytes),
		})
	}
	return bufferedResp.Response, nil
}

// DoWithPtr 发送HTTP请求并把响应解析到resp
//
// Status handling: 204 resolves with no value, 401/403 reject with the
// matching sentinel, other non-2xx reject with a normalized StatusError.
// JSON bodies are unmarshalled into resp; non-JSON bodies only into *string.
func (c *Client) DoWithPtr(options *RequestOption, resp interface{}) error {
	response, err := c.Do(options)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	switch response.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &StatusError{
			StatusCode: response.StatusCode,
			Message:    NormalizeError(bodyBytes, response.StatusCode, response.Status),
		}
	}

	if resp == nil {
		return nil
	}

	if isJSONContentType(response.Header.Get("Content-Type")) {
		return json.Unmarshal(bodyBytes, resp)
	}
	if sp, ok := resp.(*string); ok {
		*sp = string(bodyBytes)
		return nil
	}
	return json.Unmarshal(bodyBytes, resp)
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "+json")
}

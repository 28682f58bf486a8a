package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewHTTPClient 公共 REST 客户端
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// GetJSON GET 并解码 JSON，非 200 返回带响应体的错误
func GetJSON(ctx context.Context, client *http.Client, exchange, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s api error: %d %s", exchange, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", exchange, err)
	}
	return nil
}

// Package marketfeed предоставляет клиент внешнего фида рыночных трендов.
package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с фидом трендов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// SubcategoryTrend описывает тренд одной подкатегории в ответе фида.
type SubcategoryTrend struct {
	Subcategory string      `json:"subcategory"`
	Trend       model.Trend `json:"trend"`
}

// NewClient создаёт HTTP-клиент для обращения к фиду по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetTrends запрашивает тренды подкатегорий категории. Возвращает код ответа и паузу из
// Retry-After, если фид ограничил частоту запросов.
func (c *Client) GetTrends(ctx context.Context, category model.Category) ([]SubcategoryTrend, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("market feed client not configured")
	}

	endpoint := fmt.Sprintf("%s/api/trends/%s", c.baseURL, url.PathEscape(string(category)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()), nil
	case http.StatusNoContent:
		return nil, resp.StatusCode, 0, nil
	case http.StatusOK:
	default:
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result []SubcategoryTrend
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	return result, resp.StatusCode, 0, nil
}

// parseRetryAfter понимает обе формы заголовка: число секунд и HTTP-дату.
// Нераспознанное или прошедшее значение даёт ноль.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return max(0, time.Duration(seconds)*time.Second)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(0, at.Sub(now).Truncate(time.Second))
	}
	return 0
}

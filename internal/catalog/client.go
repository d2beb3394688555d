package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client fetches the question catalog from the content service.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient builds a catalog client against baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: client, logger: logger}
}

// Fetch downloads the full question set and builds a catalog from it.
func (c *Client) Fetch(ctx context.Context) (*Catalog, error) {
	var questions []Question
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&questions).
		Get("/api/questions")
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch catalog: status %d", resp.StatusCode())
	}

	c.logger.Info("catalog fetched",
		zap.Int("questions", len(questions)),
		zap.String("base_url", c.http.BaseURL),
	)
	return New(questions)
}

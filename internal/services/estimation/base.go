package estimation

import (
	"context"
	"fmt"
	"time"

	xhttp "FinTrend/pkg/http"
)

// engineClient is the transport to the decomposition engine: base URL,
// JSON POST with retry on transient failures, and GET for health.
type engineClient struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
	backoff  time.Duration
}

func newEngineClient(baseURL string, timeout time.Duration, attempts int) *engineClient {
	if attempts < 1 {
		attempts = 1
	}
	return &engineClient{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: attempts,
		backoff:  100 * time.Millisecond,
	}
}

func (b *engineClient) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.baseURL == "" {
		return fmt.Errorf("estimation engine url not configured")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// postJSONWithRetry retries transport errors, 5xx and 429 with linear backoff.
func (b *engineClient) postJSONWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	var err error
	for i := 1; i <= b.attempts; i++ {
		err = b.postJSON(ctx, path, payload, dest)
		if err == nil || !xhttp.Retryable(err) || i == b.attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (b *engineClient) get(ctx context.Context, path string) error {
	if b.baseURL == "" {
		return fmt.Errorf("estimation engine url not configured")
	}
	if err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    b.baseURL + path,
	}, nil); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

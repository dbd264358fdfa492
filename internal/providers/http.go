package providers

import (
	"context"

	"github.com/go-resty/resty/v2"
)

const defaultMaxTokens = 4096

// newRestClient returns the shared HTTP client configuration. Resty's own
// retry loop stays off; attempts are counted by Retry.
func newRestClient() *resty.Client {
	return resty.New().
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "vulnscan")
}

// postJSON sends body as JSON and returns the raw response body of a 2xx
// response. Failures are classified by checkStatus and transportError.
func postJSON(ctx context.Context, client *resty.Client, op, url string, headers map[string]string, body any) ([]byte, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		Post(url)
	if err != nil {
		return nil, transportError(op, err)
	}
	if err := checkStatus(op, resp.StatusCode(), resp.Body()); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}

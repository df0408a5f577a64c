// Package buyers talks to the buyer directory service. Authentication is
// resolved upstream; this client only answers whether a buyer id exists.
package buyers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"
)

// Client is a buyer-directory client over HTTP.
type Client struct {
	rc *resty.Client
}

// NewClient creates a Client against the given base URL, e.g.
// "http://localhost:8080/buyers". A hung directory is bounded by the
// request timeout and treated as a validation failure by callers.
func NewClient(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &Client{rc: rc}
}

// Exists reports whether the directory knows the given buyer id.
func (c *Client) Exists(ctx context.Context, buyerID string) (bool, error) {
	res, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("id", buyerID).
		Get("/{id}")
	if err != nil {
		return false, fmt.Errorf("error making request to buyer directory: %w", err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("buyer directory returned unexpected status: %d", res.StatusCode())
	}
}

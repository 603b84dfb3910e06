package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"geodns/internal/credentials"
	"geodns/pkg/logging"
)

const (
	defaultBaseURL = "https://dns.googleapis.com/dns/v1"

	// errorBodyLimit caps how much of an error response we pull into error
	// messages and logs.
	errorBodyLimit = 2048
)

// Client performs record operations against the Cloud DNS v1 REST API. The
// remote store has no per-record version token; the only concurrency control
// is the atomic change set submitted by Replace.
type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string
	creds      credentials.Provider
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a store client for one GCP project.
func NewClient(project string, creds credentials.Provider, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		project:    project,
		creds:      creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the record set identified by (zone, name, rtype), or nil
// when the store has no such record. Errors are classified: *TransientError
// for transport failures and 5xx, *AuthError for authentication failures
// that survive one token refresh.
func (c *Client) Fetch(ctx context.Context, zone, name, rtype string) (*Record, error) {
	endpoint := fmt.Sprintf("%s/projects/%s/managedZones/%s/rrsets/%s/%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(zone), url.PathEscape(name), url.PathEscape(rtype))

	resp, err := c.do(ctx, "fetch", http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var set rrSet
		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return nil, fmt.Errorf("fetch %s/%s: decoding response: %w", zone, name, err)
		}
		rec := set.record()
		return &rec, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	default:
		return nil, c.classify("fetch", resp)
	}
}

// Replace atomically swaps basedOn for desired. The change set deletes the
// exact record the caller based its merge on (or asserts absence when
// basedOn is nil) and inserts desired in the same transaction. If the server
// observes any other state at apply time the whole set is rejected and
// ErrConflict is returned; the caller refetches and retries.
func (c *Client) Replace(ctx context.Context, zone string, desired Record, basedOn *Record) error {
	change := changeSet{
		Additions: []rrSet{desired.rrset()},
	}
	if basedOn != nil {
		change.Deletions = []rrSet{basedOn.rrset()}
	}

	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("replace %s/%s: encoding change set: %w", zone, desired.Name, err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/managedZones/%s/changes",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(zone))

	resp, err := c.do(ctx, "replace", http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		logging.Debug("Store", "change set applied for %s in zone %s", desired.Name, zone)
		return nil
	case http.StatusNotFound, http.StatusConflict, http.StatusPreconditionFailed:
		// The deletion target no longer matches the server's state. A 404
		// from a change POST means the record we based on is already gone,
		// which is the same race as a 409/412 mismatch.
		return fmt.Errorf("replace %s/%s: %w", zone, desired.Name, ErrConflict)
	default:
		return c.classify("replace", resp)
	}
}

// do executes one authorized request. A 401 or 403 response triggers exactly
// one retry after forcing a credential refresh; if the retry fails the same
// way, the response is handed back so classify can surface an *AuthError.
// Transport errors are wrapped as *TransientError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) (*http.Response, error) {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("%s: %w", op, err)}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		logging.Debug("Store", "%s got status %d, refreshing credentials and retrying once", op, resp.StatusCode)
		c.creds.Invalidate()

		resp, err = c.send(ctx, method, endpoint, body)
		if err != nil {
			return nil, &TransientError{Err: fmt.Errorf("%s: %w", op, err)}
		}
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// classify turns a non-success response into the matching error type. The
// caller has already handled the statuses with protocol meaning.
func (c *Client) classify(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Operation: op}
	case resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("%s: server error %d: %s", op, resp.StatusCode, snippet)}
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, snippet)
	}
}

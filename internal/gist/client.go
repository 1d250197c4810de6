// Package gist is a client for a GitHub-style gist REST API, exposing the
// four operations the sync engine needs: create, get, update, delete.
package gist

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/imroc/req/v3"

	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
	"github.com/gistwatch/gistwatch/internal/version"
)

// DefaultBaseURL is the public GitHub API endpoint
const DefaultBaseURL = "https://api.github.com"

// Client talks to the gists API with a bearer token
type Client struct {
	client *req.Client
	log    logger.Logger
}

// NewClient creates a Client against baseURL (empty = api.github.com)
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := req.C().
		SetBaseURL(baseURL).
		SetCommonBearerAuthToken(token).
		SetCommonHeader("Accept", "application/vnd.github+json").
		SetCommonHeader("X-GitHub-Api-Version", "2022-11-28").
		SetUserAgent("gistwatch/"+version.Version).
		SetCommonRetryCount(2).
		SetCommonRetryBackoffInterval(1*time.Second, 5*time.Second).
		SetTimeout(30 * time.Second)

	return &Client{
		client: c,
		log:    logger.With("component", "gist"),
	}
}

// Create creates a gist with the given files and returns its id
func (c *Client) Create(ctx context.Context, description string, public bool, files map[string]string) (string, error) {
	payload := createRequest{
		Description: description,
		Public:      public,
		Files:       make(map[string]filePart, len(files)),
	}
	for name, content := range files {
		payload.Files[name] = filePart{Content: content}
	}

	var created gistResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&payload).
		SetSuccessResult(&created).
		Post("/gists")

	if err := c.apiError(resp, err, "create gist"); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("create gist: response carried no id")
	}

	return created.ID, nil
}

// Get fetches the gist and returns its files as name -> content.
// Contents the API truncated are re-fetched from their raw URL.
func (c *Client) Get(ctx context.Context, id string) (map[string]string, error) {
	var g gistResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&g).
		Get("/gists/" + id)

	if err := c.apiError(resp, err, "get gist"); err != nil {
		return nil, err
	}

	files := make(map[string]string, len(g.Files))
	for name, f := range g.Files {
		if f.Truncated && f.RawURL != "" {
			full, err := c.fetchRaw(ctx, f.RawURL)
			if err != nil {
				return nil, fmt.Errorf("get gist: fetch truncated file %s: %w", name, err)
			}
			files[name] = full
			continue
		}
		files[name] = f.Content
	}

	return files, nil
}

// Update edits the gist's files in one call. A nil content pointer removes
// that file; a nil entry for a name that does not exist remotely is a no-op.
func (c *Client) Update(ctx context.Context, id string, files map[string]*string) error {
	payload := updateRequest{
		Files: make(map[string]*filePart, len(files)),
	}
	for name, content := range files {
		if content == nil {
			payload.Files[name] = nil
			continue
		}
		payload.Files[name] = &filePart{Content: *content}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&payload).
		Patch("/gists/" + id)

	return c.apiError(resp, err, "update gist")
}

// Delete removes the gist
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete("/gists/" + id)

	return c.apiError(resp, err, "delete gist")
}

// fetchRaw downloads a truncated file's full content
func (c *Client) fetchRaw(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return "", err
	}
	if resp.IsErrorState() {
		return "", fmt.Errorf("raw fetch returned %s", resp.Status)
	}
	return resp.String(), nil
}

// apiError maps transport failures and API error responses onto domain
// errors where a sentinel exists
func (c *Client) apiError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("%s: %w", operation, requestErr)
	}
	if !resp.IsErrorState() {
		return nil
	}

	var body apiErrorBody
	_ = resp.UnmarshalJson(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w: %s", operation, domain.ErrUnauthorized, body.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", operation, domain.ErrRemoteNotFound)
	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.GetHeader("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w: %s", operation, domain.ErrRateLimited, body.Message)
		}
		return fmt.Errorf("%s: forbidden: %s", operation, body.Message)
	default:
		return fmt.Errorf("%s: api error %s: %s", operation, resp.Status, body.Message)
	}
}

// Package inventory is the HTTP client for the inventory API.
//
// Every call attaches the configured bearer token. Failures are returned as
// *APIError and are never retried.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/platform/timeouts"
)

// DefaultServer is the API base URL used when none is configured.
const DefaultServer = "http://localhost:8093"

const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the inventory API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inventory api: %s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("inventory api: %s (%d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Item is an inventory record as returned by the API.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Artifact converts the record to the label pipeline's item.
func (i Item) Artifact() artifact.Item {
	return artifact.Item{ID: i.ID, Name: i.Name, Price: i.Price, Description: i.Description}
}

// ItemPage is one page of items.
type ItemPage struct {
	Items         []Item `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// LoginResult is a freshly issued bearer token.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Client talks to one inventory server.
type Client struct {
	base   *url.URL
	token  string
	client *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// New builds a Client for server.
func New(server string, opts ...Option) (*Client, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		server = DefaultServer
	}
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https: %q", server)
	}
	c := &Client{base: base, client: &http.Client{Timeout: timeouts.Client}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Server returns the API base URL.
func (c *Client) Server() string {
	return c.base.String()
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// Login exchanges credentials for a bearer token. The token is not stored on
// the client; call SetToken to use it.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", nil, body, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, errors.New("login response has no token")
	}
	return out, nil
}

// CreateItem stores item and returns the stored record.
func (c *Client) CreateItem(ctx context.Context, item Item) (Item, error) {
	var out Item
	body := Item{ID: item.ID, Name: item.Name, Price: item.Price, Description: item.Description}
	if err := c.doJSON(ctx, http.MethodPost, "/api/items", nil, body, &out); err != nil {
		return Item{}, err
	}
	return out, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, id string) (Item, error) {
	var out Item
	if err := c.doJSON(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return Item{}, err
	}
	return out, nil
}

// ListItems fetches one page of items.
func (c *Client) ListItems(ctx context.Context, pageSize int, pageToken string) (ItemPage, error) {
	query := url.Values{}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}
	var out ItemPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/items", query, nil, &out); err != nil {
		return ItemPage{}, err
	}
	return out, nil
}

// DownloadLabel streams the server-rendered label for id into w and returns
// the filename the server suggested.
func (c *Client) DownloadLabel(ctx context.Context, id string, w io.Writer) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id)+"/label.pdf", nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("read label: %w", err)
	}
	filename := artifact.Filename(id)
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return filename, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends one request and converts non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	target := *c.base
	target.Path = strings.TrimRight(c.base.Path, "/") + path
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeAPIError(resp)
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

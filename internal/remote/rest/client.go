// Package rest implements remote.Table and remote.Authenticator against a
// hosted PostgREST-style API with a token auth endpoint.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/remote"
)

// TokenFunc returns the current user access token, or "" when signed out.
type TokenFunc func() string

// Client talks to the hosted sessions table and auth endpoint.
type Client struct {
	baseURL    string
	anonKey    string
	token      TokenFunc
	httpClient *http.Client
}

// Compile-time checks.
var (
	_ remote.Table         = (*Client)(nil)
	_ remote.Authenticator = (*Client)(nil)
)

// New creates a client for the project at baseURL (e.g.
// "https://xyz.example.co"). anonKey is sent as the apikey header on every
// request; token, when non-nil, supplies the bearer token.
func New(baseURL, anonKey string, token TokenFunc) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

const sessionsPath = "/rest/v1/sessions"

// --- remote.Table ---

func (c *Client) Upsert(ctx context.Context, row remote.Row) error {
	if row.Tags == nil {
		row.Tags = []string{}
	}
	err := c.doJSON(ctx, http.MethodPost, sessionsPath+"?on_conflict=id", []remote.Row{row}, nil,
		withHeader("Prefer", "resolution=merge-duplicates,return=minimal"))
	return classify("upsert session", err)
}

func (c *Client) Delete(ctx context.Context, userID, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("user_id", "eq."+userID)
	err := c.doJSON(ctx, http.MethodDelete, sessionsPath+"?"+q.Encode(), nil, nil,
		withHeader("Prefer", "return=minimal"))
	return classify("delete session", err)
}

func (c *Client) SelectAll(ctx context.Context, userID string) ([]remote.Row, error) {
	q := url.Values{}
	q.Set("select", strings.Join(remote.RowColumns, ","))
	q.Set("user_id", "eq."+userID)
	q.Set("order", "date.asc,id.asc")

	var rows []remote.Row
	if err := c.doJSON(ctx, http.MethodGet, sessionsPath+"?"+q.Encode(), nil, &rows); err != nil {
		return nil, classify("select sessions", err)
	}
	for i := range rows {
		if rows[i].Tags == nil {
			rows[i].Tags = []string{}
		}
	}
	return rows, nil
}

// Ping checks that the auth service answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodGet, "/auth/v1/health", nil, nil); err != nil {
		return fmt.Errorf("ping remote: %w", err)
	}
	return nil
}

// --- remote.Authenticator ---

// User is the auth service's view of the signed-in user.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CurrentUser returns the id of the user owning the access token. A missing
// or rejected token means no session and is not an error.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	if c.token() == "" {
		return "", nil
	}
	var u User
	err := c.doJSON(ctx, http.MethodGet, "/auth/v1/user", nil, &u)
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get current user: %w", err)
	}
	return u.ID, nil
}

// TokenResponse is returned by a successful sign-in.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// ExpiresAt converts ExpiresIn to an absolute time relative to now.
func (t *TokenResponse) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// SignIn exchanges an email and password for tokens.
func (c *Client) SignIn(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, &resp, withoutBearer()); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &resp, nil
}

// SignOut revokes the current access token. Signing out without a token is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token() == "" {
		return nil
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// --- internal helpers ---

// APIError represents an error response from the remote.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// schemaCodes are PostgREST and Postgres codes for a missing table or column.
var schemaCodes = map[string]bool{
	"PGRST205": true,
	"PGRST204": true,
	"42P01":    true,
	"42703":    true,
}

// classify wraps err for op, marking schema problems with remote.ErrSchema.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && schemaCodes[apiErr.Code] {
		return fmt.Errorf("%s: %w: %w", op, remote.ErrSchema, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func withoutBearer() requestOption {
	return func(r *http.Request) { r.Header.Del("Authorization") }
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any, opts ...requestOption) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	} else if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// decodeAPIError understands both the table API's {code, message} body and
// the auth API's {error, error_description} / {msg} bodies.
func decodeAPIError(status int, body []byte) *APIError {
	var errResp struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if json.Unmarshal(body, &errResp) != nil {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}

	apiErr := &APIError{StatusCode: status, Code: errResp.ErrorCode}
	// The auth API sends a numeric code, the table API a string one.
	var code string
	if json.Unmarshal(errResp.Code, &code) == nil && code != "" {
		apiErr.Code = code
	}
	for _, m := range []string{errResp.Message, errResp.Msg, errResp.ErrorDescription, errResp.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

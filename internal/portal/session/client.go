package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized matches any APIError the server raised because the token
// was missing, invalid or expired.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer from the portal API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("portal api: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("portal api: %d %s", e.Status, e.Message)
}

// Is reports 401 and 403 answers as ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// Client is the HTTP Authenticator. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Authenticator = (*Client)(nil)

// NewClient targets the API rooted at baseURL, for example http://localhost:8080/api.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type loginResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    Identity `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return LoginResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return LoginResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out loginResponse
	if err := c.do(req, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, errors.New("portal api: login response carried no token")
	}
	return LoginResult{Token: out.Token, User: out.User}, nil
}

func (c *Client) Profile(ctx context.Context, token string) (ProfileResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/profile", nil)
	if err != nil {
		return ProfileResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var out struct {
		User ProfileResult `json:"user"`
	}
	if err := c.do(req, &out); err != nil {
		return ProfileResult{}, err
	}
	return out.User, nil
}

func (c *Client) do(req *http.Request, dst any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

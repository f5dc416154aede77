// HTTP client for the ECS management API.
//
// The API authenticates with a session token: a GET /login with basic auth
// returns an X-SDS-AUTH-TOKEN header which must accompany every later
// request. Tokens expire server-side, so a 401 triggers one transparent
// re-login before the request is reported as failed.
package ecs

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	authTokenHeader = "X-SDS-AUTH-TOKEN"
	requestTimeout  = 60 * time.Second
)

// Connection is a client session against one management endpoint. It is safe
// for concurrent use.
type Connection struct {
	endpoint string
	username string
	password string

	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewConnection returns an unauthenticated connection to the management API
// at endpoint (e.g. "https://ecs.local:4443"). Login happens lazily on the
// first request.
func NewConnection(endpoint, username, password string, insecureSkipVerify bool) *Connection {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
	}
	return &Connection{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// Login obtains a fresh session token, replacing any existing one.
func (c *Connection) Login(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, c.endpoint+"/login", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build login request")
	}
	req = req.WithContext(ctx)
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("login rejected with status %d", resp.StatusCode)
	}

	token := resp.Header.Get(authTokenHeader)
	if token == "" {
		return errors.New("login response carried no auth token")
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// Logout invalidates the current session token.
func (c *Connection) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/logout", nil, nil, nil)
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return err
}

func (c *Connection) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	token = c.token
	c.mu.Unlock()
	return token, nil
}

// do issues one API request. A non-nil body is JSON-encoded; a non-nil out is
// filled from the JSON response. Query may be nil.
func (c *Connection) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	resp, err := c.send(ctx, method, path, query, body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "failed to decode %s %s response", method, path)
		}
	} else {
		// Drain so the connection can be reused.
		_, _ = io.Copy(ioutil.Discard, resp.Body)
	}
	return nil
}

func (c *Connection) send(ctx context.Context, method, path string, query url.Values, body interface{}, retried bool) (*http.Response, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, errors.Wrapf(err, "failed to encode %s %s request", method, path)
		}
		payload = buf
	}

	requestURL := c.endpoint + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, requestURL, payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s request", method, path)
	}
	req = req.WithContext(ctx)
	req.Header.Set(authTokenHeader, token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", method, path)
	}

	// Session token expired: log in again and replay the request once.
	if resp.StatusCode == http.StatusUnauthorized && !retried {
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		resp.Body.Close()
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.send(ctx, method, path, query, body, true)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && len(data) > 0 {
		if json.Unmarshal(data, apiErr) != nil {
			apiErr.Details = strings.TrimSpace(string(data))
		}
	}
	return apiErr
}

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/dirbot/core/logger"
	"github.com/m3rciful/dirbot/core/netutil"
	"github.com/m3rciful/dirbot/internal/domain"
	"github.com/m3rciful/dirbot/internal/listing"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultSearchSuperset = 1000
	maxResponseBytes      = 8 << 20

	usersPath      = "/_synapse/admin/v2/users"
	deactivatePath = "/_synapse/admin/v1/deactivate/"
)

// Config describes how to reach the admin API.
type Config struct {
	// BaseURL is the homeserver base URL (e.g. "https://matrix.example.org").
	BaseURL string
	// AdminToken is the bearer token of a server administrator.
	AdminToken string
	// HTTPClient is used for all requests. If nil, a client bounded by Timeout
	// is built; it does not retry, so a failure surfaces at once.
	HTTPClient *http.Client
	Timeout    time.Duration
	// SearchSuperset bounds how many accounts SearchUsers scans.
	SearchSuperset int
}

// Client talks to the Synapse admin API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	superset   int
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("directory: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("directory: invalid base URL %q", cfg.BaseURL)
	}
	token := strings.TrimSpace(cfg.AdminToken)
	if token == "" {
		return nil, fmt.Errorf("directory: admin token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = netutil.NewClient(netutil.ClientOptions{Timeout: timeout, ResponseTimeout: timeout})
	}
	superset := cfg.SearchSuperset
	if superset <= 0 {
		superset = defaultSearchSuperset
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		token:      token,
		httpClient: httpClient,
		superset:   superset,
	}, nil
}

// Open returns a Client, or Unavailable when cfg cannot produce one.
func Open(cfg Config) Directory {
	c, err := NewClient(cfg)
	if err != nil {
		logger.Error(context.Background(), "directory", "directory.config",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return Unavailable{Reason: err.Error()}
	}
	return c
}

// ListUsers returns accounts [offset, offset+limit) and the remote total.
// Deactivated accounts are included.
func (c *Client) ListUsers(ctx context.Context, offset, limit int) (domain.Page, error) {
	const op = "list users"
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("from", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("deactivated", "true")

	body, err := c.do(ctx, op, http.MethodGet, usersPath, q, nil)
	if err != nil {
		// The users collection always exists; a 404 means a wrong base URL.
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Page{}, reclassify(err, domain.ErrDirectoryUnavailable)
		}
		return domain.Page{}, err
	}
	return decodeUserList(op, body)
}

// SearchUsers scans up to the configured superset and pages over the matches.
func (c *Client) SearchUsers(ctx context.Context, term string, offset, limit int) (domain.Page, error) {
	if strings.TrimSpace(term) == "" {
		return domain.Page{}, fmt.Errorf("directory: search term: %w", domain.ErrInvalidInput)
	}
	all, err := c.ListUsers(ctx, 0, c.superset)
	if err != nil {
		return domain.Page{}, err
	}
	matched := listing.Search(all.Accounts, term)
	return domain.Page{Accounts: window(matched, offset, limit), Total: len(matched)}, nil
}

// GetUser fetches one account by id.
func (c *Client) GetUser(ctx context.Context, id string) (domain.Account, error) {
	const op = "get user"
	if strings.TrimSpace(id) == "" {
		return domain.Account{}, fmt.Errorf("directory: user id: %w", domain.ErrInvalidInput)
	}
	body, err := c.do(ctx, op, http.MethodGet, usersPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return domain.Account{}, err
	}
	var w wireUser
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.Account{}, malformed(op, err)
	}
	acc, err := w.account()
	if err != nil {
		return domain.Account{}, malformed(op, err)
	}
	return acc, nil
}

// DeactivateUser deactivates id without erasing profile data. The remote
// side decides what a repeated call on an inactive account returns.
func (c *Client) DeactivateUser(ctx context.Context, id string) error {
	const op = "deactivate user"
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("directory: user id: %w", domain.ErrInvalidInput)
	}
	_, err := c.do(ctx, op, http.MethodPost, deactivatePath+url.PathEscape(id), nil, map[string]any{"erase": false})
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, reqBody any) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("directory: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, &domain.DirectoryError{Kind: domain.ErrDirectoryUnavailable, Op: op, Err: err}
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logRequest(ctx, op, method, path, 0, start, err)
		return nil, &domain.DirectoryError{Kind: domain.ErrDirectoryUnavailable, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logRequest(ctx, op, method, path, resp.StatusCode, start, err)
		return nil, &domain.DirectoryError{Kind: domain.ErrDirectoryUnavailable, Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logRequest(ctx, op, method, path, resp.StatusCode, start, nil)
		return body, nil
	}

	derr := statusError(op, resp.StatusCode, body)
	logRequest(ctx, op, method, path, resp.StatusCode, start, derr)
	return nil, derr
}

func statusError(op string, status int, body []byte) *domain.DirectoryError {
	derr := &domain.DirectoryError{Op: op, Status: status}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		derr.Kind = domain.ErrDirectoryAuth
	case status == http.StatusNotFound:
		derr.Kind = domain.ErrNotFound
	default:
		derr.Kind = domain.ErrDirectoryUnavailable
	}
	var remote struct {
		Code    string `json:"errcode"`
		Message string `json:"error"`
	}
	if err := json.Unmarshal(body, &remote); err == nil {
		derr.RemoteCode = remote.Code
		derr.Message = remote.Message
	} else if s := strings.TrimSpace(string(body)); s != "" {
		derr.Message = logger.SanitizeLimit(s, 200)
	}
	return derr
}

func reclassify(err error, kind error) error {
	var derr *domain.DirectoryError
	if errors.As(err, &derr) {
		clone := *derr
		clone.Kind = kind
		return &clone
	}
	return err
}

func malformed(op string, err error) error {
	return &domain.DirectoryError{
		Kind:    domain.ErrDirectoryUnavailable,
		Op:      op,
		Message: "malformed response",
		Err:     err,
	}
}

func window(accounts []domain.Account, offset, limit int) []domain.Account {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(accounts) {
		return []domain.Account{}
	}
	end := len(accounts)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return accounts[offset:end]
}

func logRequest(ctx context.Context, op, method, path string, status int, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Duration("duration", logger.Took(start)),
	}
	if status != 0 {
		attrs = append(attrs, slog.Int("http_code", status))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", domain.KindCode(err)),
		)
		logger.Warn(ctx, "directory", "directory.request", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.Debug(ctx, "directory", "directory.request", attrs...)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable indicates no daemon API is configured.
var ErrUnavailable = errors.New("airdesk API unavailable")

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running daemon on behalf of one firm.
type Client struct {
	base   *url.URL
	token  string
	firmID string
	http   *http.Client
}

// NewClient builds a client for the daemon at bind. An empty bind returns a
// nil client whose methods report ErrUnavailable.
func NewClient(bind, token, firmID string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:   base,
		token:  strings.TrimSpace(token),
		firmID: strings.TrimSpace(firmID),
		http:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Health fetches GET /api/health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out)
	return out, err
}

// SubmitCall posts a finished call for processing.
func (c *Client) SubmitCall(ctx context.Context, submission CallSubmission) (CallAccepted, error) {
	var out CallAccepted
	err := c.do(ctx, http.MethodPost, "/api/calls", nil, submission, &out)
	return out, err
}

// ListTickets fetches the firm's tickets.
func (c *Client) ListTickets(ctx context.Context, statuses []string, urgentOnly bool) ([]Ticket, error) {
	query := url.Values{}
	for _, status := range statuses {
		if trimmed := strings.TrimSpace(status); trimmed != "" {
			query.Add("status", trimmed)
		}
	}
	if urgentOnly {
		query.Set("urgent", "1")
	}
	var out TicketListResponse
	err := c.do(ctx, http.MethodGet, "/api/tickets", query, nil, &out)
	return out.Tickets, err
}

// MoveTicket changes a ticket's board column.
func (c *Client) MoveTicket(ctx context.Context, id, status string) (StatusUpdateResponse, error) {
	var out StatusUpdateResponse
	path := "/api/tickets/" + url.PathEscape(id) + "/status"
	err := c.do(ctx, http.MethodPatch, path, nil, StatusUpdateRequest{Status: status}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, target any) error {
	if c == nil {
		return ErrUnavailable
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.firmID != "" {
		req.Header.Set("X-Firm-ID", c.firmID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&apiErr)
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrUnavailable) || errors.As(err, &opErr)
}

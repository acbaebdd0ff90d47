// Package api is a typed client for the case-management backend's REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/models"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnexpectedStatus = errors.NewSentinel("unexpected status code")
	ErrDecode           = errors.NewSentinel("malformed response body")
)

// maxResponseSize bounds response body reads so that a misbehaving backend cannot exhaust memory.
const maxResponseSize int64 = 32 << 20

// maxErrorBody is how much of an error response ends up in the error attributes.
const maxErrorBody = 512

// Client talks to the backend at a base URL such as http://127.0.0.1:8000/api.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client. Each request is bounded by timeout in addition to the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(baseURL, &http.Client{Timeout: timeout}) //nolint:exhaustruct // defaults are fine
}

func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Cases(ctx context.Context) ([]models.Case, error) {
	return getList[models.Case](ctx, c, "/cases")
}

func (c *Client) Tips(ctx context.Context) ([]models.Tip, error) {
	return getList[models.Tip](ctx, c, "/tips")
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	return getList[models.User](ctx, c, "/users")
}

func (c *Client) Rewards(ctx context.Context) ([]models.Reward, error) {
	return getList[models.Reward](ctx, c, "/rewards")
}

func (c *Client) Redemptions(ctx context.Context) ([]models.Redemption, error) {
	return getList[models.Redemption](ctx, c, "/rewards/redemptions")
}

// Reports lists the public sighting reports. The backend only routes the path with a trailing slash.
func (c *Client) Reports(ctx context.Context) ([]models.Report, error) {
	return getList[models.Report](ctx, c, "/reports/")
}

type statusBody struct {
	Status string `json:"status"`
}

func (c *Client) UpdateCaseStatus(ctx context.Context, id int64, status models.CaseStatus) error {
	path := fmt.Sprintf("/cases/%d/status", id)
	return c.send(ctx, http.MethodPut, path, statusBody{Status: string(status)}, nil)
}

func (c *Client) VerifyTip(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/tips/%d/verify", id), nil, nil)
}

func (c *Client) ReviewRedemption(ctx context.Context, id int64, status models.RedemptionStatus) error {
	path := fmt.Sprintf("/rewards/redemptions/%d/review", id)
	return c.send(ctx, http.MethodPatch, path, statusBody{Status: string(status)}, nil)
}

func (c *Client) ReviewReport(ctx context.Context, id int64, status models.ReportStatus) error {
	path := fmt.Sprintf("/reports/%d/review/", id)
	return c.send(ctx, http.MethodPatch, path, statusBody{Status: string(status)}, nil)
}

type awardPointsBody struct {
	Points float64           `json:"points"`
	Mode   models.PointsMode `json:"mode"`
}

// AwardPoints adds points to or sets the score of a user and returns the backend's updated user.
func (c *Client) AwardPoints(
	ctx context.Context,
	id int64,
	points float64,
	mode models.PointsMode,
) (models.User, error) {
	var user models.User
	path := fmt.Sprintf("/users/%d/points", id)
	if err := c.send(ctx, http.MethodPost, path, awardPointsBody{Points: points, Mode: mode}, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var items []T
	if err := c.send(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	// A collection endpoint always answers with an array, so null is malformed rather than empty.
	if items == nil {
		return nil, errors.Wrap(ErrDecode, "decode response body",
			slog.String("method", http.MethodGet), slog.String("path", path))
	}
	return items, nil
}

// send issues a JSON request and decodes a 2xx response into out when out is not nil.
func (c *Client) send(ctx context.Context, method, path string, in any, out any) error {
	attrs := []slog.Attr{slog.String("method", method), slog.String("path", path)}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request body", attrs...)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "create request", attrs...)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var resp *http.Response
	if resp, err = c.httpClient.Do(req); err != nil {
		return errors.Wrap(err, "do request", attrs...)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		attrs = append(attrs, slog.Int("status", resp.StatusCode), slog.String("body", string(errBody)))
		return errors.Wrap(ErrUnexpectedStatus, fmt.Sprintf("status %d", resp.StatusCode), attrs...)
	}
	if out == nil {
		return nil
	}

	var data []byte
	if data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize)); err != nil {
		return errors.Wrap(err, "read response body", attrs...)
	}
	if err = json.Unmarshal(data, out); err != nil {
		return errors.Wrap(errors.Join(ErrDecode, err), "decode response body", attrs...)
	}
	return nil
}

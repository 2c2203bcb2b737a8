// Package client talks to the CoA backend's /api/repos routes.
package client

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

	"github.com/google/uuid"

	"github.com/dev101/coa/internal/model"
)

var (
	// ErrRetryAnalysis means the backend gave up on the analysis and it has
	// to be submitted again.
	ErrRetryAnalysis = errors.New("analysis failed, retry required")
	// ErrNotFound means the analysis or repo view does not exist.
	ErrNotFound = errors.New("not found")
)

// DefaultRetryCode is the envelope code the backend uses for RETRY_AI_ANALYSIS.
const DefaultRetryCode = 5001

// APIError is a non-2xx response or an envelope with isSuccess=false.
type APIError struct {
	Status  int
	Code    int
	Message string

	retry bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("coa api: status %d code %d", e.Status, e.Code)
	}
	return fmt.Sprintf("coa api: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// Is lets errors.Is match ErrRetryAnalysis and ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRetryAnalysis:
		return e.retry
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Client is a JSON client for the CoA backend.
type Client struct {
	baseURL    string
	token      string
	retryCode  int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetryCode overrides the envelope code mapped to ErrRetryAnalysis.
func WithRetryCode(code int) Option {
	return func(c *Client) { c.retryCode = code }
}

// New creates a client for the backend at baseURL. token is sent as a
// bearer token when non-empty.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		retryCode:  DefaultRetryCode,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AnalysisRequest starts an analysis. ProjectID is set for GitLab repos.
type AnalysisRequest struct {
	RepoURL   string `json:"repoUrl"`
	UserName  string `json:"userName"`
	ProjectID *int   `json:"projectId,omitempty"`
}

// SaveRequest turns a finished analysis into a repo view.
type SaveRequest struct {
	Title       string  `json:"repoViewTitle"`
	Subtitle    string  `json:"repoViewSubtitle,omitempty"`
	MemberCount int     `json:"repoViewMemberCnt,omitempty"`
	StartDate   string  `json:"repoStartDate,omitempty"`
	EndDate     string  `json:"repoEndDate,omitempty"`
	SkillIDs    []int64 `json:"repoViewSkillList,omitempty"`
}

// StartAnalysis submits a repository and returns the backend's analysis id.
func (c *Client) StartAnalysis(ctx context.Context, req AnalysisRequest) (string, error) {
	if req.RepoURL == "" {
		return "", errors.New("repo url is required")
	}
	var id string
	if err := c.do(ctx, http.MethodPost, "/api/repos/analysis", req, &id); err != nil {
		return "", fmt.Errorf("start analysis: %w", err)
	}
	if id == "" {
		return "", errors.New("start analysis: empty analysis id")
	}
	return id, nil
}

// CheckAnalysis reports the progress of a running analysis.
func (c *Client) CheckAnalysis(ctx context.Context, id string) (*model.AnalysisCheck, error) {
	var check model.AnalysisCheck
	if err := c.do(ctx, http.MethodGet, "/api/repos/analysis/"+url.PathEscape(id), nil, &check); err != nil {
		return nil, fmt.Errorf("check analysis %s: %w", id, err)
	}
	return &check, nil
}

// DoneAnalysis fetches the result of a finished analysis.
func (c *Client) DoneAnalysis(ctx context.Context, id string) (*model.RepoDetail, error) {
	var detail model.RepoDetail
	if err := c.do(ctx, http.MethodGet, "/api/repos/analysis/done/"+url.PathEscape(id), nil, &detail); err != nil {
		return nil, fmt.Errorf("fetch analysis %s: %w", id, err)
	}
	return &detail, nil
}

// RepoView fetches a saved repo view.
func (c *Client) RepoView(ctx context.Context, repoViewID int64) (*model.RepoDetail, error) {
	var detail model.RepoDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/repos/%d", repoViewID), nil, &detail); err != nil {
		return nil, fmt.Errorf("fetch repo view %d: %w", repoViewID, err)
	}
	return &detail, nil
}

// SaveAnalysis stores a finished analysis as a repo view and returns its id.
func (c *Client) SaveAnalysis(ctx context.Context, id string, req SaveRequest) (int64, error) {
	var repoViewID int64
	if err := c.do(ctx, http.MethodPost, "/api/repos/"+url.PathEscape(id), req, &repoViewID); err != nil {
		return 0, fmt.Errorf("save analysis %s: %w", id, err)
	}
	return repoViewID, nil
}

// EditComments replaces the comment list of a repo view.
func (c *Client) EditComments(ctx context.Context, repoViewID int64, comments []model.CommitComment) error {
	if comments == nil {
		comments = []model.CommitComment{}
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/repos/comments/%d", repoViewID), comments, nil); err != nil {
		return fmt.Errorf("edit comments %d: %w", repoViewID, err)
	}
	return nil
}

// do sends body as JSON and decodes the envelope's result into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env model.BaseResponse[json.RawMessage]
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.retry = apiErr.Code == c.retryCode
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if !env.IsSuccess {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    env.Code,
			Message: env.Message,
			retry:   env.Code == c.retryCode,
		}
	}

	if out != nil && len(env.Result) > 0 && string(env.Result) != "null" {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

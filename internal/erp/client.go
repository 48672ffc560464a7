// Package erp is the boundary to the external payroll/ERP system. All
// operations are per-entry; the timesheet service owns batching and
// throttling.
package erp

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"staffing-grid/internal/timesheet"
)

const defaultTimeout = 15 * time.Second

// Client talks to the ERP's HTTP API. It implements timesheet.ExternalSync.
type Client struct {
	baseURL string
	token   string
	http    *fasthttp.Client
	timeout time.Duration
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &fasthttp.Client{},
		timeout: defaultTimeout,
	}
}

type entryPayload struct {
	EmployeeRef string  `json:"employeeRef"`
	ProjectRef  string  `json:"projectRef"`
	ActivityRef string  `json:"activityRef"`
	Hours       float64 `json:"hours"`
	Date        string  `json:"date"`
	Overtime    bool    `json:"overtime"`
	Note        string  `json:"note,omitempty"`
}

type entryResponse struct {
	Ref string `json:"ref"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// ProjectDetails is the subset of external project data the grid consumes.
type ProjectDetails struct {
	Customer    string `json:"customer"`
	Manager     string `json:"manager"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// SendTimesheetEntry creates one external timesheet record and returns its
// reference.
func (c *Client) SendTimesheetEntry(ctx context.Context, req timesheet.SyncRequest) (string, error) {
	payload := entryPayload{
		EmployeeRef: req.EmployeeRef,
		ProjectRef:  req.ProjectRef,
		ActivityRef: req.ActivityRef,
		Hours:       req.Hours,
		Date:        req.Date.Format("2006-01-02"),
		Overtime:    req.Overtime,
		Note:        req.Note,
	}
	var out entryResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/v1/timesheetentries", payload, &out); err != nil {
		return "", err
	}
	if out.Ref == "" {
		return "", Classify("external system returned no entry reference")
	}
	return out.Ref, nil
}

// DeleteTimesheetEntry removes the external record. Deleting an unknown
// reference is a success: the desired end state already holds.
func (c *Client) DeleteTimesheetEntry(ctx context.Context, externalRef string) error {
	err := c.do(ctx, fasthttp.MethodDelete, "/v1/timesheetentries/"+externalRef, nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// UnapproveTimesheetEntries revokes external approval for the given entries.
func (c *Client) UnapproveTimesheetEntries(ctx context.Context, entryIDs []string) error {
	payload := struct {
		EntryIDs []string `json:"entryIds"`
	}{EntryIDs: entryIDs}
	return c.do(ctx, fasthttp.MethodPost, "/v1/timesheetentries/unapprove", payload, nil)
}

// VerifyTimesheetEntry reports whether the external record still exists.
func (c *Client) VerifyTimesheetEntry(ctx context.Context, externalRef string) (bool, error) {
	err := c.do(ctx, fasthttp.MethodGet, "/v1/timesheetentries/"+externalRef, nil, nil)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// GetProjectDetails fetches customer/manager/date metadata for a project.
func (c *Client) GetProjectDetails(ctx context.Context, projectRef string) (*ProjectDetails, error) {
	var out ProjectDetails
	if err := c.do(ctx, fasthttp.MethodGet, "/v1/projects/"+projectRef, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// notFoundError marks a 404 so callers can treat it as idempotent success.
type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

func isNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("erp: encode request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		return fmt.Errorf("erp: %s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	switch {
	case status == fasthttp.StatusNotFound:
		return &notFoundError{msg: fmt.Sprintf("erp: %s not found", path)}
	case status == fasthttp.StatusTooManyRequests:
		return Classify("too many requests")
	case status >= 400:
		var er errorResponse
		if jsonErr := json.Unmarshal(resp.Body(), &er); jsonErr == nil && er.Message != "" {
			return Classify(er.Message)
		}
		return Classify(fmt.Sprintf("external system returned status %d", status))
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("erp: decode response: %w", err)
		}
	}
	return nil
}

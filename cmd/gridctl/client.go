package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// APIClient talks to the staffing grid API. It keeps the CSRF cookie from the
// first GET and echoes it on every mutating request.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	csrfToken  string
}

func NewAPIClient(baseURL string) (*APIClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}, nil
}

type apiError struct {
	Error string `json:"error"`
}

// ensureToken performs one GET against a protected route so the server hands
// out the CSRF cookie, then remembers the token for the mutating calls.
func (c *APIClient) ensureToken() error {
	if c.csrfToken != "" {
		return nil
	}
	res, err := c.httpClient.Get(c.baseURL + "/api/assignments")
	if err != nil {
		return fmt.Errorf("error fetching CSRF token: %w", err)
	}
	res.Body.Close()
	for _, cookie := range res.Cookies() {
		if cookie.Name == "csrf_token" {
			c.csrfToken = cookie.Value
			return nil
		}
	}
	return fmt.Errorf("server issued no CSRF token")
}

func (c *APIClient) get(path string, out any) error {
	res, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var errRes apiError
		if err := json.NewDecoder(res.Body).Decode(&errRes); err == nil && errRes.Error != "" {
			return fmt.Errorf("%s", errRes.Error)
		}
		return fmt.Errorf("server returned status %d", res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

func (c *APIClient) post(path string, body, out any) error {
	if err := c.ensureToken(); err != nil {
		return err
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", c.csrfToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var errRes apiError
		if err := json.NewDecoder(res.Body).Decode(&errRes); err == nil && errRes.Error != "" {
			return fmt.Errorf("%s", errRes.Error)
		}
		return fmt.Errorf("server returned status %d", res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

type approveResponse struct {
	Approved int `json:"approved"`
}

type sendResponse struct {
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Categories map[string]int `json:"categories"`
	TopFailure string         `json:"top_failure"`
}

type verifyRow struct {
	EntryID string  `json:"entry_id"`
	ERPRef  string  `json:"erp_ref"`
	Hours   float64 `json:"hours"`
}

type verifyResponse struct {
	Verified      []verifyRow `json:"verified"`
	NotFound      []verifyRow `json:"not_found"`
	Unchecked     []verifyRow `json:"unchecked"`
	VerifiedHours float64     `json:"verified_hours"`
	NotFoundHours float64     `json:"not_found_hours"`
}

func (c *APIClient) ApproveWeek(week, year int, approverID string) (int, error) {
	body := struct {
		Week       int    `json:"week"`
		Year       int    `json:"year"`
		ApproverID string `json:"approver_id"`
	}{week, year, approverID}
	var res approveResponse
	if err := c.post("/api/week/approve", body, &res); err != nil {
		return 0, err
	}
	return res.Approved, nil
}

func (c *APIClient) SendWeek(week, year int) (*sendResponse, error) {
	body := struct {
		Week int `json:"week"`
		Year int `json:"year"`
	}{week, year}
	var res sendResponse
	if err := c.post("/api/week/send", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) VerifyWeek(week, year int) (*verifyResponse, error) {
	var res verifyResponse
	if err := c.get(fmt.Sprintf("/api/week/verify?week=%d&year=%d", week, year), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) RecallEntry(entryID string) error {
	body := struct {
		EntryID string `json:"entry_id"`
	}{entryID}
	return c.post("/api/entries/recall", body, nil)
}

func (c *APIClient) UnapproveEntries(entryIDs []string) error {
	body := struct {
		EntryIDs []string `json:"entry_ids"`
	}{entryIDs}
	return c.post("/api/entries/unapprove", body, nil)
}

// Package sheets provides a minimal client for the Google Sheets v4 REST
// API: reading a sheet, appending rows, batch cell updates, and row
// deletion. The client performs no retries; callers own backoff policy.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the spreadsheet operations used by the tabular store.
type Client interface {
	// GetValues reads a range (A1 notation) and returns rows of cells.
	GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
	// AppendRow appends one row after the last non-empty row of the range.
	AppendRow(ctx context.Context, spreadsheetID, appendRange string, row []string) error
	// BatchUpdateValues writes several disjoint ranges in one call.
	BatchUpdateValues(ctx context.Context, spreadsheetID string, data []ValueRange) error
	// DeleteRows removes rows by zero-based index on the given sheet (tab).
	// Indexes are deleted in descending order so earlier deletions do not
	// shift later ones.
	DeleteRows(ctx context.Context, spreadsheetID string, sheetID int, rowIndexes []int) error
}

// ValueRange is a write payload for a single A1 range.
type ValueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// APIError is a non-2xx response from the Sheets API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets: api error %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// Option configures the Sheets client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Sheets API client authenticating with a bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "https://sheets.googleapis.com/v4",
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "sheets: marshal request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// parseAPIError extracts the structured error Google wraps non-2xx
// responses in, falling back to the raw body.
func parseAPIError(statusCode int, body []byte) *APIError {
	var wrapper struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
		apiErr.Status = wrapper.Error.Status
		apiErr.Message = wrapper.Error.Message
	} else {
		apiErr.Message = string(body)
	}
	return apiErr
}

func (c *httpClient) GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	path := fmt.Sprintf("/spreadsheets/%s/values/%s", url.PathEscape(spreadsheetID), url.PathEscape(readRange))
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var vr struct {
		Values [][]any `json:"values"`
	}
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, eris.Wrap(err, "sheets: unmarshal values")
	}

	rows := make([][]string, len(vr.Values))
	for i, raw := range vr.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = cellString(cell)
		}
		rows[i] = row
	}
	return rows, nil
}

// cellString renders a JSON cell value the way the sheet displays it.
func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func (c *httpClient) AppendRow(ctx context.Context, spreadsheetID, appendRange string, row []string) error {
	path := fmt.Sprintf("/spreadsheets/%s/values/%s:append", url.PathEscape(spreadsheetID), url.PathEscape(appendRange))
	query := url.Values{
		"valueInputOption": {"RAW"},
		"insertDataOption": {"INSERT_ROWS"},
	}
	payload := ValueRange{Values: [][]string{row}}
	_, err := c.do(ctx, http.MethodPost, path, query, payload)
	return err
}

func (c *httpClient) BatchUpdateValues(ctx context.Context, spreadsheetID string, data []ValueRange) error {
	if len(data) == 0 {
		return nil
	}
	path := fmt.Sprintf("/spreadsheets/%s/values:batchUpdate", url.PathEscape(spreadsheetID))
	payload := struct {
		ValueInputOption string       `json:"valueInputOption"`
		Data             []ValueRange `json:"data"`
	}{
		ValueInputOption: "RAW",
		Data:             data,
	}
	_, err := c.do(ctx, http.MethodPost, path, nil, payload)
	return err
}

type dimensionRange struct {
	SheetID    int    `json:"sheetId"`
	Dimension  string `json:"dimension"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
}

type deleteDimension struct {
	Range dimensionRange `json:"range"`
}

type batchRequest struct {
	DeleteDimension *deleteDimension `json:"deleteDimension,omitempty"`
}

func (c *httpClient) DeleteRows(ctx context.Context, spreadsheetID string, sheetID int, rowIndexes []int) error {
	if len(rowIndexes) == 0 {
		return nil
	}

	sorted := make([]int, len(rowIndexes))
	copy(sorted, rowIndexes)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	requests := make([]batchRequest, 0, len(sorted))
	for _, idx := range sorted {
		requests = append(requests, batchRequest{
			DeleteDimension: &deleteDimension{
				Range: dimensionRange{
					SheetID:    sheetID,
					Dimension:  "ROWS",
					StartIndex: idx,
					EndIndex:   idx + 1,
				},
			},
		})
	}

	path := fmt.Sprintf("/spreadsheets/%s:batchUpdate", url.PathEscape(spreadsheetID))
	payload := struct {
		Requests []batchRequest `json:"requests"`
	}{Requests: requests}
	_, err := c.do(ctx, http.MethodPost, path, nil, payload)
	return err
}

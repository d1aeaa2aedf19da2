package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides HTTP access to a running daemon's API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the daemon API bound at addr
// (host:port, as reported by the daemon or configured in paths.api_bind).
func NewClient(addr string) *Client {
	return &Client{
		base: "http://" + addr,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping checks whether the daemon API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/api/status", nil)
}

// Status retrieves the daemon's runtime status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Records lists analysis records, optionally filtered by statuses.
func (c *Client) Records(ctx context.Context, statuses []string) ([]AnalysisRecord, error) {
	path := "/api/records"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var resp RecordListResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Record retrieves a single record by content hash. It returns (nil, nil)
// when the daemon has no record for the hash.
func (c *Client) Record(ctx context.Context, contentHash string) (*AnalysisRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/records/"+url.PathEscape(contentHash), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp)
	}
	var payload RecordResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode record response: %w", err)
	}
	return &payload.Record, nil
}

// Submit queues analysis of an already-stored image blob.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submit request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/analyses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	var resp SubmitResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload stores image bytes with the daemon and queues analysis.
func (c *Client) Upload(ctx context.Context, filename string, data []byte, force bool, detectors []string) (*UploadResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if force {
		if err := writer.WriteField("force", "true"); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	if len(detectors) > 0 {
		if err := writer.WriteField("detectors", strings.Join(detectors, ",")); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/images", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	var resp UploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to publish a test notification.
func (c *Client) TestNotification(ctx context.Context) (*TestNotificationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/notifications/test", nil)
	if err != nil {
		return nil, err
	}
	var resp TestNotificationResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail fetches daemon log lines. Offset -1 requests the last limit
// lines; later calls pass the returned offset to read only new output.
// waitMillis > 0 asks the daemon to hold the request briefly when no new
// lines are available yet.
func (c *Client) LogTail(ctx context.Context, offset int64, limit, waitMillis int) (*LogTailResponse, error) {
	values := url.Values{}
	values.Set("offset", strconv.FormatInt(offset, 10))
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if waitMillis > 0 {
		values.Set("wait_ms", strconv.Itoa(waitMillis))
	}
	var resp LogTailResponse
	if err := c.get(ctx, "/api/logs/tail?"+values.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			return fmt.Errorf("daemon api: %s", payload.Error)
		}
	}
	return fmt.Errorf("daemon api: unexpected status %s", resp.Status)
}

package lawapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"luat-chat/pkg/metrics"
)

const DefaultBackendURL = "http://localhost:8000"

// DefaultTimeout bounds one backend round trip. Answer generation can be
// slow, so this is generous.
const DefaultTimeout = 120 * time.Second

// Client talks to the legal Q&A backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a backend client. An empty baseURL falls back to the default
// local deployment.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, DefaultTimeout)
}

// NewWithTimeout creates a backend client with an explicit round-trip
// timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ask sends a question with prior history and returns the backend's answer.
func (c *Client) Ask(ctx context.Context, question, mode string, history []ChatTurn) (*AnswerResponse, error) {
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	if mode == "" {
		mode = "fast"
	}

	reqBody := QuestionRequest{
		Question:    question,
		UseAdvanced: true,
		ModelMode:   mode,
		ChatHistory: history,
	}

	askStart := time.Now()
	var answer AnswerResponse
	err := c.postJSON(ctx, "/ask", reqBody, &answer)
	metrics.RecordAsk(time.Since(askStart), mode, err == nil)
	if err != nil {
		return nil, fmt.Errorf("ask request failed: %w", err)
	}

	return &answer, nil
}

// GetDocument fetches the PDF bytes for a named document. The backend serves
// either raw PDF bytes or a base64 JSON envelope; both are handled.
func (c *Client) GetDocument(ctx context.Context, domainID, filename string) ([]byte, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename cannot be empty")
	}

	url := fmt.Sprintf("%s/api/pdf-file/%s/%s", c.baseURL, domainID, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create document request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	fetchStart := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordPDFFetch(time.Since(fetchStart), false, 0)
		return nil, fmt.Errorf("failed to fetch document %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordPDFFetch(time.Since(fetchStart), false, 0)
		return nil, fmt.Errorf("document request for %s returned status %d", filename, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordPDFFetch(time.Since(fetchStart), false, 0)
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}

	data, err := decodeDocument(resp.Header.Get("Content-Type"), body)
	if err != nil {
		metrics.RecordPDFFetch(time.Since(fetchStart), false, 0)
		return nil, fmt.Errorf("failed to decode document %s: %w", filename, err)
	}

	metrics.RecordPDFFetch(time.Since(fetchStart), true, len(data))
	return data, nil
}

// decodeDocument unwraps a base64 JSON envelope when the backend used one.
func decodeDocument(contentType string, body []byte) ([]byte, error) {
	if strings.Contains(contentType, "application/json") {
		var envelope DocumentEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("invalid document envelope: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(envelope.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 document data: %w", err)
		}
		return data, nil
	}

	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, fmt.Errorf("response is not a PDF document")
	}
	return body, nil
}

// FindArticlePage asks the backend which page an article starts on. This
// endpoint is best-effort: any transport or decode error is reported as
// not found so the caller can fall back to a client-side scan.
func (c *Client) FindArticlePage(ctx context.Context, domainID, articleNum string) (int, bool) {
	url := fmt.Sprintf("%s/api/find-article-page/%s/%s", c.baseURL, domainID, articleNum)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false
	}

	var result FindPageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, false
	}
	if !result.Found || result.PageNum < 1 {
		return 0, false
	}

	return result.PageNum, true
}

// SubmitFeedback reports a like/dislike on an answer.
func (c *Client) SubmitFeedback(ctx context.Context, feedback FeedbackRequest) error {
	if feedback.Status != "like" && feedback.Status != "dislike" {
		return fmt.Errorf("invalid feedback status %q", feedback.Status)
	}

	var ack FeedbackResponse
	if err := c.postJSON(ctx, "/feedback", feedback, &ack); err != nil {
		metrics.RecordFeedback(feedback.Status, false)
		return fmt.Errorf("feedback request failed: %w", err)
	}

	metrics.RecordFeedback(feedback.Status, true)
	return nil
}

// postJSON marshals reqBody, posts it to path and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, reqBody, out interface{}) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("backend returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

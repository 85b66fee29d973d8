package runner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Client talks to the external code-execution sandbox. The sandbox is an
// opaque collaborator: it takes base64-encoded source and stdin for a
// given runtime and returns base64-encoded stdout/stderr/compile output.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type ExecRequest struct {
	RuntimeID string
	Code      string
	Stdin     string
}

// ExecResult is the decoded outcome of one sandbox run. A run with a
// non-empty compile or runtime error is not successful; the error text
// is carried verbatim so grading can report it per test.
type ExecResult struct {
	Success      bool
	Stdout       string
	CompileError *string
	RuntimeError *string
}

type wireRequest struct {
	RuntimeID     string `json:"runtime_id"`
	SourceCode    string `json:"source_code"`
	Stdin         string `json:"stdin"`
	Base64Encoded bool   `json:"base64_encoded"`
}

type wireResponse struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
}

// Execute runs code against the sandbox. It never returns an error:
// transport failures and timeouts are folded into a failed ExecResult so
// that callers treat them as failed tests, not fatal grading errors.
func (c *Client) Execute(ctx context.Context, req ExecRequest) ExecResult {
	body, err := json.Marshal(wireRequest{
		RuntimeID:     req.RuntimeID,
		SourceCode:    base64.StdEncoding.EncodeToString([]byte(req.Code)),
		Stdin:         base64.StdEncoding.EncodeToString([]byte(req.Stdin)),
		Base64Encoded: true,
	})
	if err != nil {
		return failure("failed to encode execution request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return failure("failed to build execution request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return failure("execution timed out")
		}
		return failure("code runner unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return failure("code runner rejected the request")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return failure("code runner unavailable")
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return failure("invalid response from code runner")
	}

	if compile := decodeStream(wire.CompileOutput); compile != "" {
		return ExecResult{Success: false, CompileError: &compile}
	}
	if stderr := decodeStream(wire.Stderr); stderr != "" {
		return ExecResult{Success: false, RuntimeError: &stderr}
	}
	if msg := decodeStream(wire.Message); msg != "" {
		return ExecResult{Success: false, RuntimeError: &msg}
	}

	// Absent stdout is an empty-output success.
	return ExecResult{Success: true, Stdout: decodeStream(wire.Stdout)}
}

func failure(msg string) ExecResult {
	return ExecResult{Success: false, RuntimeError: &msg}
}

// decodeStream base64-decodes an optional response stream, falling back
// to the raw value if the sandbox sent it unencoded.
func decodeStream(s *string) string {
	if s == nil {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*s))
	if err != nil {
		return *s
	}
	return string(decoded)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

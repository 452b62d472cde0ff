package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	appErr "examhall/pkg/errors"
)

const defaultExecuteTimeout = 10 * time.Second

// HTTPRunner talks to the execution service over HTTP.
type HTTPRunner struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPRunner creates a runner client for the given executor base URL.
// timeout bounds each execution call; zero picks a default.
func NewHTTPRunner(baseURL string, timeout time.Duration) *HTTPRunner {
	if timeout <= 0 {
		timeout = defaultExecuteTimeout
	}
	return &HTTPRunner{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type executeResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

// Execute posts one run to the executor and returns the captured output.
func (r *HTTPRunner) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	var result ExecuteResult

	payload, err := json.Marshal(req)
	if err != nil {
		return result, appErr.Wrapf(err, appErr.ExecutionFailed, "marshal execute request failed")
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return result, appErr.Wrapf(err, appErr.ExecutionFailed, "build execute request failed")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return result, appErr.Wrap(err, appErr.ExecutionTimedOut)
		}
		return result, appErr.Wrap(err, appErr.ExecutorUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return result, appErr.Wrapf(err, appErr.ExecutorUnavailable, "read executor response failed")
	}
	if resp.StatusCode != http.StatusOK {
		return result, appErr.Newf(appErr.ExecutorUnavailable, "executor returned status %d", resp.StatusCode)
	}

	var decoded executeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return result, appErr.Wrapf(err, appErr.ExecutionFailed, "decode executor response failed")
	}

	result = ExecuteResult{
		Stdout:   decoded.Stdout,
		Stderr:   decoded.Stderr,
		ExitCode: decoded.ExitCode,
		Duration: time.Duration(decoded.DurationMs) * time.Millisecond,
	}
	return result, nil
}

var _ Runner = (*HTTPRunner)(nil)

// String implements fmt.Stringer for log output.
func (r *HTTPRunner) String() string {
	return fmt.Sprintf("http-runner(%s)", r.baseURL)
}

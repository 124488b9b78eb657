package fork

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwbudde/dakotadriver/internal/bridge"
)

// CallbackPath is where Handler is mounted by the process engine.
const CallbackPath = "/evaluate"

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves evaluation requests from analysis driver processes.
// A failed evaluation answers 500 with the error message.
func Handler(eval bridge.Evaluator, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req bridge.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
			return
		}

		result, err := eval.Evaluate(r.Context(), req)
		if err != nil {
			logger.Error("evaluation failed", "eval_id", req.EvalID, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(errorResponse{Error: fmt.Sprintf("failed to encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// RemoteError is an evaluation failure reported by the callback server.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote evaluation failed (%d): %s", e.Status, e.Message)
}

// Client forwards evaluations to a Handler. It implements bridge.Evaluator.
type Client struct {
	URL  string
	HTTP *http.Client
}

// NewClient returns a client for the callback at url.
func NewClient(url string) *Client {
	return &Client{URL: url, HTTP: &http.Client{Timeout: 24 * time.Hour}}
}

func (c *Client) Evaluate(ctx context.Context, req bridge.Request) (bridge.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return bridge.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("failed to reach callback: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = string(bytes.TrimSpace(data))
		}
		return bridge.Result{}, &RemoteError{Status: resp.StatusCode, Message: e.Error}
	}

	var result bridge.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return bridge.Result{}, fmt.Errorf("failed to decode result: %w", err)
	}
	return result, nil
}

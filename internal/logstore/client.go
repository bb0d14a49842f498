package logstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/logsight/backend/internal/model"
	"github.com/logsight/backend/pkg/circuitbreaker"
	"github.com/logsight/backend/pkg/logger"
	"github.com/logsight/backend/pkg/retry"
)

// Client talks to the store's HTTP API. Status calls are retried against
// transient transport errors; the submit call is never retried, since a
// duplicate submit would burn a second query slot. Both go through a circuit
// breaker so a dead store fails fast instead of burning the polling budget.
type Client struct {
	endpoint   string
	apiKey     string
	limits     Limits
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	retryCfg   retry.Config
}

type startQueryResponse struct {
	QueryID string `json:"query_id"`
}

type queryStatusResponse struct {
	Status     string              `json:"status"`
	Results    [][]model.Field     `json:"results,omitempty"`
	Rows       []map[string]string `json:"rows,omitempty"`
	Diagnostic string              `json:"diagnostic,omitempty"`
}

func NewClient(endpoint, apiKey string, timeout time.Duration, limits Limits) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		limits:   limits,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: circuitbreaker.New("logstore", circuitbreaker.Config{
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			Logger:           logger.Log,
		}),
		retryCfg: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			Logger:       logger.Log,
		},
	}
}

func (c *Client) StartQuery(ctx context.Context, input StartQueryInput) (string, error) {
	input.StartTime = EpochSeconds(input.StartTime)
	input.EndTime = EpochSeconds(input.EndTime)
	input.Limit = c.limits.Clamp(input.Limit)

	body, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal query input: %w", err)
	}

	var queryID string
	err = c.breaker.Execute(func() error {
		resp, execErr := c.do(ctx, http.MethodPost, "/v1/queries", body)
		if execErr != nil {
			return execErr
		}

		var parsed startQueryResponse
		if execErr = json.Unmarshal(resp, &parsed); execErr != nil {
			return fmt.Errorf("failed to decode start query response: %w", execErr)
		}
		if parsed.QueryID == "" {
			return fmt.Errorf("store returned no query id")
		}
		queryID = parsed.QueryID
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Debug("Query submitted", zap.String("query_id", queryID))
	return queryID, nil
}

func (c *Client) QueryStatus(ctx context.Context, queryID string) (*StatusOutput, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() (*StatusOutput, error) {
		var out *StatusOutput
		err := c.breaker.Execute(func() error {
			resp, execErr := c.do(ctx, http.MethodGet, "/v1/queries/"+queryID, nil)
			if execErr != nil {
				return execErr
			}

			var parsed queryStatusResponse
			if execErr = json.Unmarshal(resp, &parsed); execErr != nil {
				return fmt.Errorf("failed to decode query status response: %w", execErr)
			}
			out = toStatusOutput(parsed)
			return nil
		})
		return out, err
	})
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read store response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store returned status %d: %s", resp.StatusCode, string(payload))
	}

	return payload, nil
}

// toStatusOutput maps the wire response to the boundary type. The store may
// return either the column-oriented result shape or flat rows; both are
// carried through as the RawRecord union for the normalizer to resolve.
func toStatusOutput(parsed queryStatusResponse) *StatusOutput {
	out := &StatusOutput{
		Status:     Status(parsed.Status),
		Diagnostic: parsed.Diagnostic,
	}

	for _, fields := range parsed.Results {
		out.Records = append(out.Records, model.RawRecord{Fields: fields})
	}
	for _, row := range parsed.Rows {
		out.Records = append(out.Records, model.RawRecord{Flat: row})
	}

	return out
}

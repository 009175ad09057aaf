// Package prediction calls the hosted view-count model.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mathieu-neron/tube301/internal/model"
)

type request struct {
	Input struct {
		CSVInstance []any `json:"csvInstance"`
	} `json:"input"`
}

type response struct {
	OutputValue json.RawMessage `json:"outputValue"`
}

// Client posts feature rows to a prediction endpoint.
type Client struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{url: url, client: &http.Client{Timeout: timeout}}
}

// PredictViewCount returns the model's view-count estimate for f.
func (c *Client) PredictViewCount(ctx context.Context, f model.PredictionFeatures) (float64, error) {
	var body request
	body.Input.CSVInstance = []any{f.CategoryID, f.Title, f.Description, f.ChannelSubscriberCount}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("prediction service: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode prediction: %w", err)
	}
	return parseOutput(out.OutputValue)
}

// parseOutput accepts the output value either as a JSON number or as a
// numeric string.
func parseOutput(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("prediction: missing outputValue")
	}
	s := string(raw)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("prediction: bad outputValue %s", raw)
	}
	return v, nil
}

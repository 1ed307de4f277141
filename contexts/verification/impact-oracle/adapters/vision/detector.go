// Package vision talks to a YOLO-class object detection sidecar over HTTP.
// The detector confirms human interaction in evidence photos and feeds the
// person count into parameter triangulation.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"satin/contexts/verification/impact-oracle/ports"
)

const defaultEndpoint = "http://127.0.0.1:8600/detect"

// Client posts evidence images to the inference endpoint and maps the
// response onto the detector port.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Detector = (*Client)(nil)

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Confidence      float64  `json:"confidence"`
	DetectedObjects []string `json:"detected_objects"`
	PersonCount     int      `json:"person_count"`
	HasPerson       bool     `json:"found_human_interaction"`
}

func (c *Client) Analyze(ctx context.Context, image []byte) (ports.DetectionResult, error) {
	body, err := json.Marshal(detectRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return ports.DetectionResult{}, fmt.Errorf("encode detect request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.DetectionResult{}, fmt.Errorf("build detect request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.DetectionResult{}, fmt.Errorf("call detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.DetectionResult{}, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.DetectionResult{}, fmt.Errorf("decode detect response: %w", err)
	}

	c.logger.Debug("object detection completed",
		slog.String("event", "object_detection_completed"),
		slog.String("module", "verification/impact-oracle"),
		slog.String("layer", "adapter"),
		slog.Float64("confidence", decoded.Confidence),
		slog.Int("person_count", decoded.PersonCount))

	return ports.DetectionResult{
		Confidence:  decoded.Confidence,
		Objects:     decoded.DetectedObjects,
		PersonCount: decoded.PersonCount,
		HasPerson:   decoded.HasPerson,
	}, nil
}

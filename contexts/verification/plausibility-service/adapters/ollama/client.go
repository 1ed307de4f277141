// Package ollama talks to a local Ollama daemon running a LLaVA-class
// vision-language model. It backs both the consistency auditor and the
// parameter deducer ports.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"satin/contexts/verification/plausibility-service/domain/entities"
	"satin/contexts/verification/plausibility-service/ports"
)

const (
	defaultEndpoint = "http://127.0.0.1:11434/api/generate"
	defaultModel    = "llava"
)

// Client is a thin JSON-mode client for /api/generate.
type Client struct {
	endpoint   string
	model      string
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

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
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
		model:      defaultModel,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Format string   `json:"format"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generate sends one prompt and returns the model's raw response text with
// markdown code fences stripped.
func (c *Client) generate(ctx context.Context, prompt string, image []byte) (string, error) {
	req := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	}
	if len(image) > 0 {
		req.Images = []string{base64.StdEncoding.EncodeToString(image)}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("vision model call",
		slog.String("event", "vision_model_call"),
		slog.String("module", "verification/plausibility-service"),
		slog.String("layer", "adapter"),
		slog.String("model", c.model),
		slog.Bool("with_image", len(image) > 0))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call vision model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision model returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	raw := strings.TrimSpace(decoded.Response)
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw), nil
}

type judgmentPayload struct {
	Verdict              string   `json:"verdict"`
	Confidence           int      `json:"confidence"`
	Inconsistencies      []string `json:"inconsistencies"`
	ManipulationType     *string  `json:"manipulation_type"`
	RealisticPeople      int      `json:"realistic_people_helped"`
	RealisticEffortHours float64  `json:"realistic_effort_hours"`
	Reasoning            string   `json:"reasoning"`
}

// Judge cross-examines a claim against its photo evidence.
func (c *Client) Judge(ctx context.Context, req ports.ConsistencyRequest) (ports.ConsistencyJudgment, error) {
	prompt := fmt.Sprintf(`You are a fraud detection system for a volunteer action oracle.
Look at the attached photo (if any) and read the following social action claim:

ACTION_TYPE: %s
URGENCY: %s
EFFORT_HOURS: %v
PEOPLE_HELPED: %d
DESCRIPTION: %q

Judge whether the claimed parameters are logical, internally consistent, and
consistent with the photo. Answer ONLY with pure JSON, no preamble, no markdown:
{
  "verdict": "consistent" | "suspicious" | "fabricated",
  "confidence": <integer 0-100>,
  "inconsistencies": ["list", "of", "specific", "issues"],
  "manipulation_type": null | "action_type_mismatch" | "people_inflated" | "effort_inflated" | "urgency_gamed" | "description_vague" | "multiple",
  "realistic_people_helped": <integer estimate>,
  "realistic_effort_hours": <float estimate>,
  "reasoning": "short logical explanation"
}`,
		req.ActionType, req.Urgency, req.EffortHours, req.PeopleHelped, req.Description)

	raw, err := c.generate(ctx, prompt, req.Image)
	if err != nil {
		return ports.ConsistencyJudgment{}, err
	}

	var payload judgmentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ports.ConsistencyJudgment{}, fmt.Errorf("parse model judgment: %w", err)
	}

	verdict := entities.Verdict(payload.Verdict)
	switch verdict {
	case entities.VerdictConsistent, entities.VerdictSuspicious, entities.VerdictFabricated:
	default:
		verdict = entities.VerdictConsistent
	}

	manipulation := ""
	if payload.ManipulationType != nil {
		manipulation = *payload.ManipulationType
	}

	return ports.ConsistencyJudgment{
		Verdict:          verdict,
		Confidence:       payload.Confidence,
		Inconsistencies:  payload.Inconsistencies,
		ManipulationType: manipulation,
		RealisticPeople:  payload.RealisticPeople,
		RealisticEffort:  payload.RealisticEffortHours,
		Reasoning:        payload.Reasoning,
	}, nil
}

type deductionPayload struct {
	Category        string   `json:"category"`
	Urgency         string   `json:"urgency"`
	PeopleHelped    int      `json:"people_helped"`
	PeopleMin       int      `json:"people_min"`
	PeopleMax       int      `json:"people_max"`
	EffortHours     float64  `json:"effort_hours"`
	EffortMin       float64  `json:"effort_min"`
	EffortMax       float64  `json:"effort_max"`
	Confidence      float64  `json:"confidence"`
	FraudIndicators []string `json:"fraud_indicators"`
	Rationale       string   `json:"rationale"`
}

// Deduce estimates working parameters for a submission that declared none.
func (c *Client) Deduce(ctx context.Context, req ports.DeduceRequest) (entities.DeducedParameters, error) {
	detectorSummary := "no detector output available"
	if req.PersonCount >= 0 {
		detectorSummary = fmt.Sprintf("object detector saw %d person(s), objects: %s",
			req.PersonCount, strings.Join(req.DetectedObjects, ", "))
	}

	prompt := fmt.Sprintf(`You are an action assessment system for a volunteer action oracle.
Look at the attached photo (if any) and read this volunteer's account of their action:

DESCRIPTION: %q
DETECTOR: %s

Estimate the working parameters of the action. Category must be one of:
FOOD_DISTRIBUTION, MEDICAL_AID, SHELTER_CONSTRUCTION, EDUCATION_SESSION,
DISASTER_RELIEF, CLEAN_WATER_PROJECT, MENTAL_HEALTH_SUPPORT, ENVIRONMENTAL_ACTION.
Urgency must be one of: LOW, MEDIUM, HIGH, CRITICAL.
Be conservative: when in doubt, estimate low. Answer ONLY with pure JSON:
{
  "category": "<one of the categories>",
  "urgency": "<one of the urgency levels>",
  "people_helped": <integer best estimate>,
  "people_min": <integer>,
  "people_max": <integer>,
  "effort_hours": <float best estimate>,
  "effort_min": <float>,
  "effort_max": <float>,
  "confidence": <float 0.0-1.0>,
  "fraud_indicators": ["zero or more short tags"],
  "rationale": "short explanation"
}`,
		req.Description, detectorSummary)

	raw, err := c.generate(ctx, prompt, req.Image)
	if err != nil {
		return entities.DeducedParameters{}, err
	}

	var payload deductionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return entities.DeducedParameters{}, fmt.Errorf("parse model deduction: %w", err)
	}

	return entities.DeducedParameters{
		Category:        payload.Category,
		Urgency:         payload.Urgency,
		PeopleHelped:    payload.PeopleHelped,
		PeopleMin:       payload.PeopleMin,
		PeopleMax:       payload.PeopleMax,
		EffortHours:     payload.EffortHours,
		EffortMin:       payload.EffortMin,
		EffortMax:       payload.EffortMax,
		Confidence:      payload.Confidence,
		FraudIndicators: payload.FraudIndicators,
		Rationale:       payload.Rationale,
	}, nil
}

var (
	_ ports.ConsistencyAuditor = (*Client)(nil)
	_ ports.ParameterDeducer   = (*Client)(nil)
)

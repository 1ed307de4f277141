package ports

import (
	"context"

	"satin/contexts/verification/plausibility-service/domain/entities"
)

// ConsistencyRequest carries one claim for cross-examination by the
// vision-language model.
type ConsistencyRequest struct {
	ActionType   string
	Urgency      string
	EffortHours  float64
	PeopleHelped int
	Description  string
	Image        []byte
}

// ConsistencyJudgment is the model's structured answer.
type ConsistencyJudgment struct {
	Verdict          entities.Verdict
	Confidence       int
	Inconsistencies  []string
	ManipulationType string
	RealisticPeople  int
	RealisticEffort  float64
	Reasoning        string
}

// ConsistencyAuditor judges whether a claim's parameters, description and
// photo tell the same story. Implementations must honor ctx deadlines.
type ConsistencyAuditor interface {
	Judge(ctx context.Context, req ConsistencyRequest) (ConsistencyJudgment, error)
}

// DeduceRequest carries a submission with no user-declared parameters.
// Detector fields are optional; PersonCount < 0 means no detector ran.
type DeduceRequest struct {
	Description     string
	Image           []byte
	DetectedObjects []string
	PersonCount     int
}

// ParameterDeducer estimates working parameters from description and
// evidence alone.
type ParameterDeducer interface {
	Deduce(ctx context.Context, req DeduceRequest) (entities.DeducedParameters, error)
}

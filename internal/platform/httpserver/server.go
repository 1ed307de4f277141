package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	reputationservice "satin/contexts/community/reputation-service"
	reputationerrors "satin/contexts/community/reputation-service/domain/errors"
	reputationports "satin/contexts/community/reputation-service/ports"
	reviewservice "satin/contexts/community/review-service"
	reviewcommands "satin/contexts/community/review-service/application/commands"
	reviewerrors "satin/contexts/community/review-service/domain/errors"
	impactoracle "satin/contexts/verification/impact-oracle"
	"satin/contexts/verification/impact-oracle/application/commands"
	oracleerrors "satin/contexts/verification/impact-oracle/domain/errors"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "satin/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	apiKey     string
	oracle     *impactoracle.Module
	review     *reviewservice.Module
	reputation reputationservice.Module
}

func New(
	oracle *impactoracle.Module,
	review *reviewservice.Module,
	reputation reputationservice.Module,
	apiKey string,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		apiKey:     apiKey,
		oracle:     oracle,
		review:     review,
		reputation: reputation,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/oracle/info", s.handleOracleInfo)

	s.mux.HandleFunc("POST /api/v1/verify", s.handleVerify)
	s.mux.HandleFunc("GET /api/v1/verify/recent", s.handleRecentEvaluations)
	s.mux.HandleFunc("GET /api/v1/verify/{event_id}", s.handleGetEvaluation)

	s.mux.HandleFunc("POST /api/v1/review/cases/{case_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/v1/review/cases/{case_id}", s.handleGetCase)
	s.mux.HandleFunc("GET /api/v1/review/cases", s.handleOpenCases)
	s.mux.HandleFunc("GET /api/v1/review/events/{event_id}", s.handleGetEventCase)

	s.mux.HandleFunc("GET /api/v1/reputation/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("GET /api/v1/reputation/{address}", s.handleGetReputation)
}

// requireAPIKey gates write endpoints behind X-Oracle-Key. An empty
// configured key disables the check for local runs.
func (s *Server) requireAPIKey(w http.ResponseWriter, r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	if strings.TrimSpace(r.Header.Get("X-Oracle-Key")) != s.apiKey {
		writeError(w, http.StatusUnauthorized, "unauthorized", "X-Oracle-Key header is missing or wrong")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOracleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, oracleInfoResponseFrom(s.oracle.Queries.Info(r.Context())))
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !s.requireAPIKey(w, r) {
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	submission, err := req.toSubmission()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_image", "image_base64 must be valid base64")
		return
	}

	eval, err := s.oracle.Evaluate.Evaluate(r.Context(), commands.EvaluateCommand{
		Submission: submission,
		Input:      req.toParameters(),
	})
	if err != nil {
		writeOracleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluationResponseFrom(eval))
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	eval, err := s.oracle.Queries.Evaluation(r.Context(), eventID)
	if err != nil {
		writeOracleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponseFrom(eval))
}

func (s *Server) handleRecentEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	evals, err := s.oracle.Queries.Feed(r.Context(), limit)
	if err != nil {
		writeOracleDomainError(w, err)
		return
	}
	out := make([]EvaluationResponse, 0, len(evals))
	for _, eval := range evals {
		resp := evaluationResponseFrom(eval)
		if eval.ReviewOpened {
			tally, err := s.review.Queries.EventTally(r.Context(), eval.EventID)
			switch {
			case err == nil:
				enriched := reviewCaseResponseFrom(tally)
				resp.Review = &enriched
			case !errors.Is(err, reviewerrors.ErrCaseNotFound):
				writeReviewDomainError(w, err)
				return
			}
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	if !s.requireAPIKey(w, r) {
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if _, err := s.review.Vote.CastVote(r.Context(), reviewcommands.CastVoteCommand{
		CaseID:            r.PathValue("case_id"),
		VoterAddress:      req.VoterAddress,
		Approve:           req.Approve,
		ClaimedReputation: req.ClaimedReputation,
	}); err != nil {
		writeReviewDomainError(w, err)
		return
	}

	tally, err := s.review.Queries.CaseTally(r.Context(), r.PathValue("case_id"))
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewCaseResponseFrom(tally))
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	tally, err := s.review.Queries.CaseTally(r.Context(), r.PathValue("case_id"))
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewCaseResponseFrom(tally))
}

func (s *Server) handleGetEventCase(w http.ResponseWriter, r *http.Request) {
	tally, err := s.review.Queries.EventTally(r.Context(), r.PathValue("event_id"))
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewCaseResponseFrom(tally))
}

func (s *Server) handleOpenCases(w http.ResponseWriter, r *http.Request) {
	tallies, err := s.review.Queries.OpenCases(r.Context())
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	out := make([]ReviewCaseResponse, 0, len(tallies))
	for _, tally := range tallies {
		out = append(out, reviewCaseResponseFrom(tally))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetReputation(w http.ResponseWriter, r *http.Request) {
	record, err := s.reputation.Service.GetReputation(r.Context(), r.PathValue("address"))
	if err != nil {
		writeReputationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reputationResponseFrom(record))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := reputationports.LeaderboardFilter{
		ViewerAddress: strings.TrimSpace(r.Header.Get("X-Volunteer-Address")),
	}
	if raw := query.Get("tier"); raw != "" {
		tier, ok := reputationports.ParseTier(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_tier", "tier must be bronze, silver, gold, or platinum")
			return
		}
		filter.Tier = tier
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		filter.Offset = offset
	}

	board, err := s.reputation.Service.GetLeaderboard(r.Context(), filter)
	if err != nil {
		writeReputationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponseFrom(board))
}

func writeOracleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, oracleerrors.ErrAgentBanned):
		writeError(w, http.StatusForbidden, "agent_banned", err.Error())
	case errors.Is(err, oracleerrors.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, oracleerrors.ErrDuplicateEvidence):
		writeError(w, http.StatusConflict, "duplicate_evidence", err.Error())
	case errors.Is(err, oracleerrors.ErrInvalidSubmission),
		errors.Is(err, oracleerrors.ErrUnknownActionType),
		errors.Is(err, oracleerrors.ErrUnknownUrgencyLevel),
		errors.Is(err, oracleerrors.ErrUnhandledInputShape):
		writeError(w, http.StatusBadRequest, "invalid_submission", err.Error())
	case errors.Is(err, oracleerrors.ErrEvaluationNotFound),
		errors.Is(err, oracleerrors.ErrAttestationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, oracleerrors.ErrSignerUnavailable):
		writeError(w, http.StatusServiceUnavailable, "signer_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeReviewDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reviewerrors.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "case_not_found", err.Error())
	case errors.Is(err, reviewerrors.ErrCaseClosed),
		errors.Is(err, reviewerrors.ErrDuplicateVote),
		errors.Is(err, reviewerrors.ErrCaseExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, reviewerrors.ErrSelfVote),
		errors.Is(err, reviewerrors.ErrVoterNotEligible):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, reviewerrors.ErrInvalidCaseInput),
		errors.Is(err, reviewerrors.ErrInvalidVoteInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeReputationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reputationerrors.ErrInvalidAddress),
		errors.Is(err, reputationerrors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, reputationerrors.ErrReputationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, reputationerrors.ErrDependencyUnavailable):
		writeError(w, http.StatusFailedDependency, "dependency_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	reputationservice "satin/contexts/community/reputation-service"
	reputationpostgres "satin/contexts/community/reputation-service/adapters/postgres"
	reviewservice "satin/contexts/community/review-service"
	reviewpostgres "satin/contexts/community/review-service/adapters/postgres"
	reviewhttp "satin/contexts/community/review-service/adapters/reputation"
	reviewports "satin/contexts/community/review-service/ports"
	impactoracle "satin/contexts/verification/impact-oracle"
	impactpostgres "satin/contexts/verification/impact-oracle/adapters/postgres"
	"satin/contexts/verification/impact-oracle/adapters/vision"
	impactworkers "satin/contexts/verification/impact-oracle/application/workers"
	impactservices "satin/contexts/verification/impact-oracle/domain/services"
	impactports "satin/contexts/verification/impact-oracle/ports"
	integrityservice "satin/contexts/verification/integrity-service"
	integritypostgres "satin/contexts/verification/integrity-service/adapters/postgres"
	integrityworkers "satin/contexts/verification/integrity-service/application/workers"
	plausibilityservice "satin/contexts/verification/plausibility-service"
	"satin/contexts/verification/plausibility-service/adapters/ollama"
	"satin/internal/evm"
	"satin/internal/platform/config"
	"satin/internal/platform/db"
	"satin/internal/platform/httpserver"
	"satin/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	bus          *messaging.Bus
	reputation   reputationservice.Module
	outboxRelay  impactworkers.OutboxRelay
	retention    integrityworkers.RetentionSweeper
	pollInterval time.Duration
	logger       *slog.Logger
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// ctxUUIDGenerator satisfies the integrity store's context-aware
// generator port; the others take no context.
type ctxUUIDGenerator struct{}

func (ctxUUIDGenerator) NewID(context.Context) (string, error) { return uuid.NewString(), nil }

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if cfg.OraclePrivateKeyHex == "" {
		return nil, errors.New("ORACLE_PRIVATE_KEY is required")
	}

	signer, err := evm.NewSigner(cfg.OraclePrivateKeyHex)
	if err != nil {
		return nil, err
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	var models []any
	models = append(models, integritypostgres.Models()...)
	models = append(models, impactpostgres.Models()...)
	models = append(models, reviewpostgres.Models()...)
	models = append(models, reputationpostgres.Models()...)
	if err := pg.Migrate(models...); err != nil {
		_ = pg.Close()
		return nil, err
	}

	integrityRepo := integritypostgres.NewRepository(pg.DB, logger)
	integrityModule := integrityservice.NewModule(integrityservice.Dependencies{
		Reserve:      integrityRepo,
		Submissions:  integrityRepo,
		Fingerprints: integrityRepo,
		Abuse:        integrityRepo,
		Clock:        systemClock{},
		IDGen:        ctxUUIDGenerator{},
		Logger:       logger,
	})

	auditor := ollama.NewClient(
		ollama.WithEndpoint(cfg.OllamaEndpoint),
		ollama.WithLogger(logger),
	)
	plausibilityModule := plausibilityservice.NewModule(plausibilityservice.Dependencies{
		Auditor: auditor,
		Deducer: auditor,
		Logger:  logger,
	})

	detector := vision.NewClient(
		vision.WithEndpoint(cfg.DetectorEndpoint),
		vision.WithLogger(logger),
	)

	oracleRepo := impactpostgres.NewRepository(pg.DB, logger)
	opener := &reviewOpener{}
	oracleModule := impactoracle.NewModule(impactoracle.Dependencies{
		Integrity:      &integrityModule.Screen,
		Plausibility:   plausibilityModule.Validate,
		Deduction:      plausibilityModule.Deduce,
		Detector:       detector,
		Store:          oracleRepo,
		Review:         opener,
		Signer:         signer,
		Clock:          systemClock{},
		IDs:            uuidGenerator{},
		Logger:         logger,
		AttestationTTL: cfg.AttestationTTL,
	})

	reputationRepo := reputationpostgres.NewRepository(pg.DB, logger)
	reputationModule := reputationservice.NewModule(reputationservice.Dependencies{
		Repository: reputationRepo,
		Clock:      systemClock{},
		Logger:     logger,
	})

	var reputationGate reviewports.ReputationLookup = &reputationLookup{service: reputationModule.Service}
	if strings.TrimSpace(cfg.ReputationEndpoint) != "" {
		reputationGate = reviewhttp.NewClient(reviewhttp.WithEndpoint(cfg.ReputationEndpoint))
	}

	reviewRepo := reviewpostgres.NewRepository(pg.DB, logger)
	reviewModule := reviewservice.NewModule(reviewservice.Dependencies{
		Cases:               reviewRepo,
		Reputation:          reputationGate,
		Minter:              &minimumMinter{attest: oracleModule.AttestMinimum},
		Abuse:               &abuseBridge{abuse: integrityModule.Abuse},
		Clock:               systemClock{},
		IDs:                 uuidGenerator{},
		Logger:              logger,
		Quorum:              cfg.ReviewQuorum,
		ReputationThreshold: cfg.ReputationThreshold,
	})
	opener.open = reviewModule.Open

	server := httpserver.New(
		oracleModule,
		reviewModule,
		reputationModule,
		cfg.APIKey,
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(logger)

	oracleRepo := impactpostgres.NewRepository(pg.DB, logger)
	integrityRepo := integritypostgres.NewRepository(pg.DB, logger)
	reputationModule := reputationservice.NewModule(reputationservice.Dependencies{
		Repository: reputationpostgres.NewRepository(pg.DB, logger),
		Clock:      systemClock{},
		Logger:     logger,
	})
	return &WorkerApp{
		postgres:   pg,
		bus:        bus,
		reputation: reputationModule,
		outboxRelay: impactworkers.OutboxRelay{
			Outbox:    oracleRepo,
			Publisher: bus,
			Clock:     systemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		retention: integrityworkers.RetentionSweeper{
			Submissions:  integrityRepo,
			Fingerprints: integrityRepo,
			Clock:        systemClock{},
			Logger:       logger,
		},
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.bus.Subscribe(ctx, impactservices.TopicAttestationIssued, w.creditReputation)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.retention.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// creditReputation accrues points for each published attestation. The
// outbox write is already durable by this point, so failures here only
// log; a missed credit surfaces at the next verified action.
func (w *WorkerApp) creditReputation(ctx context.Context, event impactports.EventEnvelope) error {
	var payload struct {
		VolunteerAddress string  `json:"volunteer_address"`
		ImpactScore      float64 `json:"impact_score"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	rep, err := w.reputation.Service.RecordVerification(ctx, payload.VolunteerAddress, payload.ImpactScore)
	if err != nil {
		return err
	}
	w.logger.Info("reputation credited",
		"event", "bootstrap_reputation_credited",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"event_id", event.EventID,
		"volunteer_address", payload.VolunteerAddress,
		"tier", string(rep.Tier),
	)
	return nil
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

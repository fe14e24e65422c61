package handlers

import (
	"log/slog"

	"github.com/sirupsen/logrus"

	"github.com/sideseat/sideseat-core/internal/config"
	"github.com/sideseat/sideseat-core/internal/core/domain/auth"
	"github.com/sideseat/sideseat-core/internal/core/domain/organization"
	"github.com/sideseat/sideseat-core/internal/core/domain/storage"
	"github.com/sideseat/sideseat-core/internal/core/domain/user"
	obsServices "github.com/sideseat/sideseat-core/internal/core/services/observability"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/apikey"
	authHandler "github.com/sideseat/sideseat-core/internal/transport/http/handlers/auth"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/environment"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/filestore"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/health"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/keypair"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/logs"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/metrics"
	observabilityHandler "github.com/sideseat/sideseat-core/internal/transport/http/handlers/observability"
	organizationHandler "github.com/sideseat/sideseat-core/internal/transport/http/handlers/organization"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/project"
	userHandler "github.com/sideseat/sideseat-core/internal/transport/http/handlers/user"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers/websocket"
)

// Handlers bundles every HTTP handler the server mounts routes against.
type Handlers struct {
	Health        *health.Handler
	Metrics       *metrics.Handler
	Auth          *authHandler.Handler
	User          *userHandler.Handler
	Onboarding    *userHandler.OnboardingHandler
	Organization  *organizationHandler.Handler
	Project       *project.Handler
	Environment   *environment.Handler
	APIKey        *apikey.Handler
	KeyPair       *keypair.Handler
	FileStore     *filestore.Handler
	Logs          *logs.Handler
	WebSocket     *websocket.Handler
	Observability *observabilityHandler.Handler
	OTLP          *observabilityHandler.OTLPHandler
	OTLPMetrics   *observabilityHandler.OTLPMetricsHandler
	OTLPLogs      *observabilityHandler.OTLPLogsHandler
	SpanQuery     *observabilityHandler.SpanQueryHandler
	Messages      *observabilityHandler.MessageHandler
}

// NewHandlers wires every transport handler to its backing service. logger
// is the logrus logger most handlers in this tree take; slogLogger threads
// through the observability handlers that predate the move to logrus.
func NewHandlers(
	cfg *config.Config,
	logger *logrus.Logger,
	slogLogger *slog.Logger,
	authService auth.AuthService,
	userService user.UserService,
	profileService user.ProfileService,
	onboardingService user.OnboardingService,
	organizationService organization.OrganizationService,
	memberService organization.MemberService,
	projectService organization.ProjectService,
	environmentService organization.EnvironmentService,
	invitationService organization.InvitationService,
	settingsService organization.OrganizationSettingsService,
	roleService auth.RoleService,
	keyPairService auth.KeyPairService,
	observabilityServices *obsServices.ServiceRegistry,
	fileStoreService storage.BlobStorageService,
) *Handlers {
	return &Handlers{
		Health:     health.NewHandler(cfg, logger),
		Metrics:    metrics.NewHandler(cfg, logger),
		Auth:       authHandler.NewHandler(cfg, logger, authService, userService),
		User:       userHandler.NewHandler(cfg, logger, userService, profileService),
		Onboarding: userHandler.NewOnboardingHandler(cfg, logger, onboardingService, userService),
		Organization: organizationHandler.NewHandler(
			cfg, logger,
			organizationService, memberService, projectService,
			invitationService, settingsService,
			userService, roleService,
		),
		Project:       project.NewHandler(cfg, logger, projectService, organizationService, memberService, environmentService),
		Environment:   environment.NewHandler(cfg, logger),
		APIKey:        apikey.NewHandler(cfg, logger),
		KeyPair:       keypair.NewHandler(cfg, logger, keyPairService),
		FileStore:     filestore.NewHandler(cfg, logger, fileStoreService),
		Logs:          logs.NewHandler(cfg, logger),
		WebSocket:     websocket.NewHandler(cfg, logger),
		Observability: observabilityHandler.NewHandler(cfg, logger, observabilityServices),
		OTLP: observabilityHandler.NewOTLPHandler(
			observabilityServices.IngestionPipeline,
			logger,
		),
		OTLPMetrics: observabilityHandler.NewOTLPMetricsHandler(
			observabilityServices.IngestionPipeline,
			slogLogger,
		),
		OTLPLogs: observabilityHandler.NewOTLPLogsHandler(
			observabilityServices.StreamProducer,
			observabilityServices.OTLPLogsConverterService,
			observabilityServices.OTLPEventsConverterService,
			logger,
		),
		SpanQuery: observabilityHandler.NewSpanQueryHandler(observabilityServices.SpanQueryService, slogLogger),
		Messages:  observabilityHandler.NewMessageHandler(observabilityServices.MessageService, slogLogger),
	}
}
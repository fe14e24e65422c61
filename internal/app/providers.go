package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/sideseat/sideseat-core/internal/config"
	"github.com/sideseat/sideseat-core/internal/core/domain/auth"
	"github.com/sideseat/sideseat-core/internal/core/domain/common"
	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
	"github.com/sideseat/sideseat-core/internal/core/domain/organization"
	storageDomain "github.com/sideseat/sideseat-core/internal/core/domain/storage"
	"github.com/sideseat/sideseat-core/internal/core/domain/user"
	authService "github.com/sideseat/sideseat-core/internal/core/services/auth"
	observabilityService "github.com/sideseat/sideseat-core/internal/core/services/observability"
	orgService "github.com/sideseat/sideseat-core/internal/core/services/organization"
	storageService "github.com/sideseat/sideseat-core/internal/core/services/storage"
	userService "github.com/sideseat/sideseat-core/internal/core/services/user"
	"github.com/sideseat/sideseat-core/internal/infrastructure/cache"
	cacheMemory "github.com/sideseat/sideseat-core/internal/infrastructure/cache/memory"
	"github.com/sideseat/sideseat-core/internal/infrastructure/database"
	"github.com/sideseat/sideseat-core/internal/infrastructure/filestore"
	authRepo "github.com/sideseat/sideseat-core/internal/infrastructure/repository/auth"
	"github.com/sideseat/sideseat-core/internal/infrastructure/secrets"
	observabilityRepo "github.com/sideseat/sideseat-core/internal/infrastructure/repository/observability"
	orgRepo "github.com/sideseat/sideseat-core/internal/infrastructure/repository/organization"
	redisRepo "github.com/sideseat/sideseat-core/internal/infrastructure/repository/redis"
	storageRepo "github.com/sideseat/sideseat-core/internal/infrastructure/repository/storage"
	userRepo "github.com/sideseat/sideseat-core/internal/infrastructure/repository/user"
	"github.com/sideseat/sideseat-core/internal/infrastructure/storage"
	"github.com/sideseat/sideseat-core/internal/infrastructure/streams"
	grpcTransport "github.com/sideseat/sideseat-core/internal/transport/grpc"
	"github.com/sideseat/sideseat-core/internal/transport/http"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers"
	"github.com/sideseat/sideseat-core/internal/workers"
	"github.com/sideseat/sideseat-core/pkg/email"
	"github.com/sideseat/sideseat-core/pkg/logging"
	"github.com/sideseat/sideseat-core/pkg/ulid"

	"github.com/sirupsen/logrus"
)

// DeploymentMode selects which provider graph ProvideCore's caller wires: a
// server exposing HTTP/gRPC, or a background worker draining streams.
type DeploymentMode string

const (
	ModeServer DeploymentMode = "server"
	ModeWorker DeploymentMode = "worker"
)

type CoreContainer struct {
	Config    *config.Config
	Logger    *slog.Logger
	Databases *DatabaseContainer
	Repos     *RepositoryContainer
	TxManager common.TransactionManager
	Services  *ServiceContainer
}

type ServerContainer struct {
	HTTPServer *http.Server
	GRPCServer *grpcTransport.Server
}

type ProviderContainer struct {
	Core    *CoreContainer
	Server  *ServerContainer // nil in worker mode
	Workers *WorkerContainer // nil in server mode
	Mode    DeploymentMode
}

type DatabaseContainer struct {
	Postgres   *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
}

type WorkerContainer struct {
	TelemetryConsumer *workers.TelemetryStreamConsumer
}

type RepositoryContainer struct {
	User          *UserRepositories
	Auth          *AuthRepositories
	Organization  *OrganizationRepositories
	Observability *ObservabilityRepositories
	Storage       *StorageRepositories
}

type UserRepositories struct {
	User user.Repository
}

type AuthRepositories struct {
	UserSession        auth.UserSessionRepository
	BlacklistedToken   auth.BlacklistedTokenRepository
	PasswordResetToken auth.PasswordResetTokenRepository
	APIKey             auth.APIKeyRepository
	Role               auth.RoleRepository
	OrganizationMember auth.OrganizationMemberRepository
	Permission         auth.PermissionRepository
	RolePermission     auth.RolePermissionRepository
	AuditLog           auth.AuditLogRepository
	KeyPair            auth.KeyPairRepository
}

type OrganizationRepositories struct {
	Organization organization.OrganizationRepository
	Member       organization.MemberRepository
	Project      organization.ProjectRepository
	Invitation   organization.InvitationRepository
	Settings     organization.OrganizationSettingsRepository
	Environment  organization.EnvironmentRepository
}

type ObservabilityRepositories struct {
	Trace                  observability.TraceRepository
	Span                   observability.SpanRepository
	Session                observability.SessionRepository
	Score                  observability.ScoreRepository
	ScoreAnalytics         observability.ScoreAnalyticsRepository
	Metrics                observability.MetricsRepository
	Logs                   observability.LogsRepository
	GenAIEvents            observability.GenAIEventsRepository
	TelemetryDeduplication observability.TelemetryDeduplicationRepository
	FilterPreset           observability.FilterPresetRepository
	BlobStorage            observability.BlobStorageRepository
	Message                observability.MessageRepository
}

// StorageRepositories holds the general-purpose content-addressed blob store,
// distinct from the observability-specific blob store above: this one backs
// arbitrary file uploads outside the telemetry ingestion path. BlobStorage is
// the ClickHouse append-only audit log of upload events; FileRow is the
// Postgres/embedded ref-counting ledger that makes the store content-
// addressed.
type StorageRepositories struct {
	BlobStorage storageDomain.BlobStorageRepository
	FileRow     storageDomain.FileRowRepository
}

type UserServices struct {
	User       user.UserService
	Profile    user.ProfileService
	Onboarding user.OnboardingService
}

type AuthServices struct {
	Auth                auth.AuthService
	JWT                 auth.JWTService
	Sessions            auth.SessionService
	APIKey              auth.APIKeyService
	Role                auth.RoleService
	Permission          auth.PermissionService
	OrganizationMembers auth.OrganizationMemberService
	BlacklistedTokens   auth.BlacklistedTokenService
	Scope               auth.ScopeService
	OAuthProvider       *authService.OAuthProviderService
	KeyPair             auth.KeyPairService
}

type ServiceContainer struct {
	User                *UserServices
	Auth                *AuthServices
	OrganizationService organization.OrganizationService
	MemberService       organization.MemberService
	ProjectService      organization.ProjectService
	InvitationService   organization.InvitationService
	SettingsService     organization.OrganizationSettingsService
	EnvironmentService  organization.EnvironmentService
	Observability       *observabilityService.ServiceRegistry
	FileStore           storageDomain.BlobStorageService
}

// Shutdown closes every database connection owned by the core container,
// regardless of deployment mode.
func (p *ProviderContainer) Shutdown() error {
	if p == nil || p.Core == nil || p.Core.Databases == nil {
		return nil
	}

	dbs := p.Core.Databases
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if dbs.Postgres != nil {
		record(dbs.Postgres.Close())
	}
	if dbs.Redis != nil {
		record(dbs.Redis.Close())
	}
	if dbs.ClickHouse != nil {
		record(dbs.ClickHouse.Close())
	}

	return firstErr
}

// HealthCheck reports the connectivity status of every backing database.
func (p *ProviderContainer) HealthCheck() map[string]string {
	status := make(map[string]string)
	if p == nil || p.Core == nil || p.Core.Databases == nil {
		status["status"] = "not initialized"
		return status
	}

	dbs := p.Core.Databases

	if dbs.Postgres != nil {
		if err := dbs.Postgres.Health(); err != nil {
			status["postgres"] = "unhealthy: " + err.Error()
		} else {
			status["postgres"] = "healthy"
		}
	}
	if dbs.Redis != nil {
		if err := dbs.Redis.Health(); err != nil {
			status["redis"] = "unhealthy: " + err.Error()
		} else {
			status["redis"] = "healthy"
		}
	}
	if dbs.ClickHouse != nil {
		if err := dbs.ClickHouse.Health(); err != nil {
			status["clickhouse"] = "unhealthy: " + err.Error()
		} else {
			status["clickhouse"] = "healthy"
		}
	}

	switch p.Mode {
	case ModeServer:
		status["mode"] = "server"
	case ModeWorker:
		status["mode"] = "worker"
	}

	return status
}

func ProvideDatabases(cfg *config.Config, logger *slog.Logger) (*DatabaseContainer, error) {
	postgres, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	redis, err := database.NewRedisDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	clickhouse, err := database.NewClickHouseDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &DatabaseContainer{
		Postgres:   postgres,
		Redis:      redis,
		ClickHouse: clickhouse,
	}, nil
}

func ProvideWorkers(core *CoreContainer) (*WorkerContainer, error) {
	logrusLogger := logging.NewLogrusLogger(logging.ParseLevel(core.Config.Logging.Level), core.Config.Logging.Format)

	deduplicationService := observabilityService.NewTelemetryDeduplicationService(
		core.Repos.Observability.TelemetryDeduplication,
	)

	consumerConfig := &workers.TelemetryStreamConsumerConfig{
		ConsumerGroup:     "telemetry-workers",
		ConsumerID:        "worker-" + ulid.New().String(),
		BatchSize:         50,
		BlockDuration:     time.Second,
		MaxRetries:        3,
		RetryBackoff:      500 * time.Millisecond,
		DiscoveryInterval: 30 * time.Second,
		MaxStreamsPerRead: 10,
	}

	telemetryConsumer := workers.NewTelemetryStreamConsumer(
		core.Databases.Redis,
		deduplicationService,
		logrusLogger,
		consumerConfig,
		core.Services.Observability.TraceService,
		core.Services.Observability.SpanService,
		core.Services.Observability.ScoreService,
		core.Services.Observability.MessageService,
	)

	return &WorkerContainer{
		TelemetryConsumer: telemetryConsumer,
	}, nil
}

func ProvideCore(cfg *config.Config, logger *slog.Logger) (*CoreContainer, error) {
	databases, err := ProvideDatabases(cfg, logger)
	if err != nil {
		return nil, err
	}

	repos := ProvideRepositories(databases, logger)

	// Concrete → interface for dependency inversion
	txManager := database.NewTransactionManager(databases.Postgres.DB)

	return &CoreContainer{
		Config:    cfg,
		Logger:    logger,
		Databases: databases,
		Repos:     repos,
		TxManager: txManager, // Stored as common.TransactionManager interface
		Services:  nil,       // Populated by mode-specific provider
	}, nil
}

// ProvideFileStore builds the content-addressed blob backend named by
// cfg.Provider: local disk by default (cfg.LocalPath, or
// "./data/filestore" when unset), S3/MinIO/GCS/Azure-via-S3-API otherwise.
func ProvideFileStore(cfg *config.BlobStorageConfig, logger *logrus.Logger) (filestore.Store, error) {
	if cfg.IsLocal() {
		baseDir := cfg.LocalPath
		if baseDir == "" {
			baseDir = "./data/filestore"
		}
		return filestore.NewLocalStore(baseDir, logger)
	}

	s3Client, err := storage.NewS3Client(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize S3 client for file store: %w", err)
	}
	return filestore.NewS3Store(s3Client), nil
}

func ProvideServerServices(core *CoreContainer) *ServiceContainer {
	cfg := core.Config
	logger := core.Logger
	repos := core.Repos
	databases := core.Databases

	modelRepo := observabilityRepo.NewModelRepository(databases.Postgres.DB)
	pricingLookup := observabilityService.NewPricingService(modelRepo)
	logrusLogger := logging.NewLogrusLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	observabilityServices := ProvideObservabilityServices(repos.Observability, pricingLookup, databases.Redis, cfg, logger, logrusLogger)
	authServices := ProvideAuthServices(cfg, repos.User, repos.Auth, databases, logger)
	userServices := ProvideUserServices(repos.User, repos.Auth, logger)
	orgSvc, memberService, projectService, invitationService, settingsService, environmentService :=
		ProvideOrganizationServices(repos.User, repos.Auth, repos.Organization, authServices, cfg, logger)

	fileStore, err := ProvideFileStore(&cfg.BlobStorage, logrusLogger)
	if err != nil {
		logger.Warn("Failed to initialize file store, uploads will be disabled", "error", err)
		fileStore = filestore.Disabled(err)
	}
	fileStoreService := storageService.NewBlobStorageService(
		repos.Storage.BlobStorage,
		repos.Storage.FileRow,
		fileStore,
		&cfg.BlobStorage,
		logrusLogger,
	)

	return &ServiceContainer{
		User:                userServices,
		Auth:                authServices,
		OrganizationService: orgSvc,
		MemberService:       memberService,
		ProjectService:      projectService,
		InvitationService:   invitationService,
		SettingsService:     settingsService,
		EnvironmentService:  environmentService,
		Observability:       observabilityServices,
		FileStore:           fileStoreService,
	}
}

func ProvideWorkerServices(core *CoreContainer) *ServiceContainer {
	cfg := core.Config
	logger := core.Logger
	repos := core.Repos
	databases := core.Databases

	modelRepo := observabilityRepo.NewModelRepository(databases.Postgres.DB)
	pricingLookup := observabilityService.NewPricingService(modelRepo)
	logrusLogger := logging.NewLogrusLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	observabilityServices := ProvideObservabilityServices(repos.Observability, pricingLookup, databases.Redis, cfg, logger, logrusLogger)

	return &ServiceContainer{
		User:               nil, // Worker doesn't need auth/user/org services
		Auth:               nil,
		Observability:      observabilityServices,
	}
}

func ProvideServer(core *CoreContainer) (*ServerContainer, error) {
	logrusLogger := logging.NewLogrusLogger(logging.ParseLevel(core.Config.Logging.Level), core.Config.Logging.Format)

	httpHandlers := handlers.NewHandlers(
		core.Config,
		logrusLogger,
		core.Logger,
		core.Services.Auth.Auth,
		core.Services.User.User,
		core.Services.User.Profile,
		core.Services.User.Onboarding,
		core.Services.OrganizationService,
		core.Services.MemberService,
		core.Services.ProjectService,
		core.Services.EnvironmentService,
		core.Services.InvitationService,
		core.Services.SettingsService,
		core.Services.Auth.Role,
		core.Services.Auth.KeyPair,
		core.Services.Observability,
		core.Services.FileStore,
	)

	httpServer := http.NewServer(
		core.Config,
		logrusLogger,
		httpHandlers,
		core.Services.Auth.JWT,
		core.Services.Auth.BlacklistedTokens,
		core.Services.Auth.OrganizationMembers,
		core.Services.Auth.APIKey,
		core.Databases.Redis.Client,
	)

	slogLogger := core.Logger

	grpcOTLPHandler := grpcTransport.NewOTLPHandler(
		core.Services.Observability.StreamProducer,
		core.Services.Observability.DeduplicationService,
		core.Services.Observability.OTLPConverterService,
		slogLogger,
	)

	grpcOTLPMetricsHandler := grpcTransport.NewOTLPMetricsHandler(
		core.Services.Observability.StreamProducer,
		core.Services.Observability.OTLPMetricsConverterService,
		slogLogger,
	)

	grpcOTLPLogsHandler := grpcTransport.NewOTLPLogsHandler(
		core.Services.Observability.StreamProducer,
		core.Services.Observability.OTLPLogsConverterService,
		core.Services.Observability.OTLPEventsConverterService,
		slogLogger,
	)

	grpcAuthInterceptor := grpcTransport.NewAuthInterceptor(
		core.Services.Auth.APIKey,
		slogLogger,
	)

	grpcServer, err := grpcTransport.NewServer(
		core.Config.GRPC.Port,
		grpcOTLPHandler,
		grpcOTLPMetricsHandler,
		grpcOTLPLogsHandler,
		grpcAuthInterceptor,
		slogLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	core.Logger.Info("gRPC OTLP server initialized", "port", core.Config.GRPC.Port)

	return &ServerContainer{
		HTTPServer: httpServer,
		GRPCServer: grpcServer,
	}, nil
}

func ProvideUserRepositories(db *gorm.DB) *UserRepositories {
	return &UserRepositories{
		User: userRepo.NewUserRepository(db),
	}
}

func ProvideAuthRepositories(db *gorm.DB) *AuthRepositories {
	return &AuthRepositories{
		UserSession:        authRepo.NewUserSessionRepository(db),
		BlacklistedToken:   authRepo.NewBlacklistedTokenRepository(db),
		PasswordResetToken: authRepo.NewPasswordResetTokenRepository(db),
		APIKey:             authRepo.NewAPIKeyRepository(db),
		Role:               authRepo.NewRoleRepository(db),
		OrganizationMember: authRepo.NewOrganizationMemberRepository(db),
		Permission:         authRepo.NewPermissionRepository(db),
		RolePermission:     authRepo.NewRolePermissionRepository(db),
		AuditLog:           authRepo.NewAuditLogRepository(db),
		KeyPair:            authRepo.NewKeyPairRepository(db),
	}
}

func ProvideOrganizationRepositories(db *gorm.DB) *OrganizationRepositories {
	return &OrganizationRepositories{
		Organization: orgRepo.NewOrganizationRepository(db),
		Member:       orgRepo.NewMemberRepository(db),
		Project:      orgRepo.NewProjectRepository(db),
		Invitation:   orgRepo.NewInvitationRepository(db),
		Settings:     orgRepo.NewOrganizationSettingsRepository(db),
		Environment:  orgRepo.NewEnvironmentRepository(db),
	}
}

func ProvideObservabilityRepositories(clickhouseDB *database.ClickHouseDB, postgresDB *gorm.DB, redisDB *database.RedisDB) *ObservabilityRepositories {
	return &ObservabilityRepositories{
		Trace:                  observabilityRepo.NewTraceRepository(clickhouseDB.Conn),
		Span:                   observabilityRepo.NewSpanRepository(clickhouseDB.Conn),
		Session:                observabilityRepo.NewSessionRepository(clickhouseDB.Conn),
		Score:                  observabilityRepo.NewScoreRepository(clickhouseDB.Conn),
		ScoreAnalytics:         observabilityRepo.NewScoreAnalyticsRepository(clickhouseDB.Conn),
		Metrics:                observabilityRepo.NewMetricsRepository(clickhouseDB.Conn),
		Logs:                   observabilityRepo.NewLogsRepository(clickhouseDB.Conn),
		GenAIEvents:            observabilityRepo.NewGenAIEventsRepository(clickhouseDB.Conn),
		TelemetryDeduplication: observabilityRepo.NewTelemetryDeduplicationRepository(redisDB),
		FilterPreset:           observabilityRepo.NewFilterPresetRepository(postgresDB),
		BlobStorage:            observabilityRepo.NewBlobStorageRepository(clickhouseDB.Conn),
		Message:                observabilityRepo.NewMessageRepository(clickhouseDB.Conn),
	}
}

func ProvideStorageRepositories(clickhouseDB *database.ClickHouseDB, postgresDB *gorm.DB) *StorageRepositories {
	return &StorageRepositories{
		BlobStorage: storageRepo.NewBlobStorageRepository(clickhouseDB.Conn),
		FileRow:     storageRepo.NewFileRowRepository(postgresDB),
	}
}

func ProvideRepositories(dbs *DatabaseContainer, logger *slog.Logger) *RepositoryContainer {
	return &RepositoryContainer{
		User:          ProvideUserRepositories(dbs.Postgres.DB),
		Auth:          ProvideAuthRepositories(dbs.Postgres.DB),
		Organization:  ProvideOrganizationRepositories(dbs.Postgres.DB),
		Observability: ProvideObservabilityRepositories(dbs.ClickHouse, dbs.Postgres.DB, dbs.Redis),
		Storage:       ProvideStorageRepositories(dbs.ClickHouse, dbs.Postgres.DB),
	}
}

func ProvideUserServices(
	userRepos *UserRepositories,
	authRepos *AuthRepositories,
	logger *slog.Logger,
) *UserServices {
	userSvc := userService.NewUserService(
		userRepos.User,
		nil,
		authRepos.OrganizationMember,
	)

	profileSvc := userService.NewProfileService(
		userRepos.User,
	)

	onboardingSvc := userService.NewOnboardingService(
		userRepos.User,
		authRepos.AuditLog,
	)

	return &UserServices{
		User:       userSvc,
		Profile:    profileSvc,
		Onboarding: onboardingSvc,
	}
}

// ProvideAPIKeySecretProvider resolves the HMAC secret API keys are hashed
// with, per AuthConfig.APIKeySecretProvider: "env" (default) reads
// APIKeyHashSecret straight from configuration, "aws_secrets_manager"
// resolves APIKeySecretID through AWS Secrets Manager.
func ProvideAPIKeySecretProvider(ctx context.Context, cfg *config.AuthConfig) (secrets.Provider, error) {
	switch cfg.APIKeySecretProvider {
	case "", "env":
		return secrets.NewStaticProvider(cfg.APIKeyHashSecret)
	case "aws_secrets_manager":
		return secrets.NewAWSSecretsManagerProvider(ctx, cfg.APIKeySecretRegion, cfg.APIKeySecretID)
	default:
		return nil, fmt.Errorf("unsupported api key secret provider %q", cfg.APIKeySecretProvider)
	}
}

// ProvideCacheBackend selects the caching/rate-limiting fabric for this
// deployment: Redis-backed (default, shared across every server
// instance) or an in-process LRU-with-expiry backend for a single-node
// deployment that would rather not share cache/rate-limit state over the
// network even though Redis itself is still used for the telemetry
// stream.
func ProvideCacheBackend(cfg *config.RedisConfig, redisDB *database.RedisDB) (cache.Backend, error) {
	if cfg.IsMemoryCache() {
		size := cfg.MemoryCacheSize
		if size <= 0 {
			size = 10000
		}
		return cacheMemory.New(size)
	}
	return redisRepo.NewBackend(redisDB), nil
}

func ProvideAuthServices(
	cfg *config.Config,
	userRepos *UserRepositories,
	authRepos *AuthRepositories,
	databases *DatabaseContainer,
	logger *slog.Logger,
) *AuthServices {
	jwtService, err := authService.NewJWTService(&cfg.Auth)
	if err != nil {
		logger.Error("Failed to create JWT service", "error", err)
		os.Exit(1)
	}

	permissionService := authService.NewPermissionService(
		authRepos.Permission,
		authRepos.RolePermission,
	)

	roleService := authService.NewRoleService(
		authRepos.Role,
		authRepos.RolePermission,
	)

	orgMemberService := authService.NewOrganizationMemberService(
		authRepos.OrganizationMember,
		authRepos.Role,
	)

	blacklistedTokenService := authService.NewBlacklistedTokenService(
		authRepos.BlacklistedToken,
	)

	sessionService := authService.NewSessionService(
		&cfg.Auth,
		authRepos.UserSession,
		userRepos.User,
		jwtService,
	)

	secretProvider, err := ProvideAPIKeySecretProvider(context.Background(), &cfg.Auth)
	if err != nil {
		logger.Error("Failed to initialize API key secret provider", "error", err)
		os.Exit(1)
	}

	cacheBackend, err := ProvideCacheBackend(&cfg.Redis, databases.Redis)
	if err != nil {
		logger.Error("Failed to initialize cache backend", "error", err)
		os.Exit(1)
	}

	apiKeyService := authService.NewAPIKeyService(
		authRepos.APIKey,
		authRepos.OrganizationMember,
		secretProvider,
		cache.NewLimiter(cacheBackend),
	)

	coreAuthSvc := authService.NewAuthService(
		&cfg.Auth,
		userRepos.User,
		authRepos.UserSession,
		jwtService,
		roleService,
		authRepos.PasswordResetToken,
		blacklistedTokenService,
		databases.Redis.Client,
	)

	// Audit decorator for clean separation of concerns
	authSvc := authService.NewAuditDecorator(coreAuthSvc, authRepos.AuditLog, logger)

	scopeService := authService.NewScopeService(
		authRepos.OrganizationMember,
		authRepos.Role,
		authRepos.Permission,
	)

	frontendURL := "http://localhost:3000"
	if url := os.Getenv("NEXT_PUBLIC_APP_URL"); url != "" {
		frontendURL = url
	}
	oauthProvider := authService.NewOAuthProviderService(
		&cfg.Auth,
		databases.Redis.Client,
		frontendURL,
	)

	keyPairService := authService.NewKeyPairService(
		authRepos.KeyPair,
		userRepos.User,
	)

	return &AuthServices{
		Auth:                authSvc,
		JWT:                 jwtService,
		Sessions:            sessionService,
		APIKey:              apiKeyService,
		Role:                roleService,
		Permission:          permissionService,
		OrganizationMembers: orgMemberService,
		BlacklistedTokens:   blacklistedTokenService,
		Scope:               scopeService,
		OAuthProvider:       oauthProvider,
		KeyPair:             keyPairService,
	}
}

func ProvideOrganizationServices(
	userRepos *UserRepositories,
	authRepos *AuthRepositories,
	orgRepos *OrganizationRepositories,
	authServices *AuthServices,
	cfg *config.Config,
	logger *slog.Logger,
) (
	organization.OrganizationService,
	organization.MemberService,
	organization.ProjectService,
	organization.InvitationService,
	organization.OrganizationSettingsService,
	organization.EnvironmentService,
) {
	memberSvc := orgService.NewMemberService(
		orgRepos.Member,
		orgRepos.Organization,
		userRepos.User,
		authServices.Role,
	)

	projectSvc := orgService.NewProjectService(
		orgRepos.Project,
		orgRepos.Organization,
		orgRepos.Member,
	)

	// Create email sender based on configuration
	emailSender, err := createEmailSender(&cfg.External.Email, logger)
	if err != nil {
		logger.Error("failed to create email sender", "error", err)
		os.Exit(1)
	}

	invitationSvc := orgService.NewInvitationService(
		orgRepos.Invitation,
		orgRepos.Organization,
		orgRepos.Member,
		userRepos.User,
		authServices.Role,
		emailSender,
		orgService.InvitationServiceConfig{
			AppURL: cfg.Server.AppURL,
		},
		logger.With("service", "invitation"),
	)

	orgSvc := orgService.NewOrganizationService(
		orgRepos.Organization,
		userRepos.User,
		memberSvc,
		projectSvc,
		authServices.Role,
	)

	settingsSvc := orgService.NewOrganizationSettingsService(
		orgRepos.Settings,
		orgRepos.Member,
	)

	environmentSvc := orgService.NewEnvironmentService(
		orgRepos.Environment,
		orgRepos.Project,
		orgRepos.Member,
		authRepos.AuditLog,
	)

	return orgSvc, memberSvc, projectSvc, invitationSvc, settingsSvc, environmentSvc
}

func ProvideObservabilityServices(
	observabilityRepos *ObservabilityRepositories,
	pricingLookup observability.PricingLookup,
	redisDB *database.RedisDB,
	cfg *config.Config,
	logger *slog.Logger,
	logrusLogger *logrus.Logger,
) *observabilityService.ServiceRegistry {
	deduplicationService := observabilityService.NewTelemetryDeduplicationService(observabilityRepos.TelemetryDeduplication)
	streamProducer := streams.NewTelemetryStreamProducer(redisDB, logrusLogger)
	telemetryService := observabilityService.NewTelemetryService(
		deduplicationService,
		streamProducer,
		logrusLogger,
	)

	var s3Client *storage.S3Client
	if cfg.BlobStorage.Provider != "" && cfg.BlobStorage.BucketName != "" {
		var err error
		s3Client, err = storage.NewS3Client(&cfg.BlobStorage, logrusLogger)
		if err != nil {
			logger.Warn("Failed to initialize S3 client, blob storage will be disabled", "error", err)
		}
	}

	return observabilityService.NewServiceRegistry(
		observabilityRepos.Trace,
		observabilityRepos.Span,
		observabilityRepos.Score,
		observabilityRepos.Metrics,
		observabilityRepos.Logs,
		observabilityRepos.GenAIEvents,
		observabilityRepos.BlobStorage,
		observabilityRepos.FilterPreset,
		observabilityRepos.Message,
		s3Client,
		&cfg.BlobStorage,
		streamProducer,
		deduplicationService,
		telemetryService,
		pricingLookup,
		&cfg.Observability,
		logrusLogger,
		logger,
	)
}

func createEmailSender(cfg *config.EmailConfig, logger *slog.Logger) (email.EmailSender, error) {
	if cfg.Provider == "" {
		logger.Warn("email sender not configured, invitations will not be sent via email")
		return &email.NoOpEmailSender{}, nil
	}

	logger.Info("initializing email sender", "provider", cfg.Provider)

	switch cfg.Provider {
	case "resend":
		return email.NewResendClient(email.ResendConfig{
			APIKey:    cfg.ResendAPIKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}), nil

	case "smtp":
		return email.NewSMTPClient(email.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
			UseTLS:    cfg.SMTPUseTLS,
		}), nil

	case "ses":
		client, err := email.NewSESClient(email.SESConfig{
			Region:    cfg.SESRegion,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES client: %w", err)
		}
		return client, nil

	case "sendgrid":
		return email.NewSendGridClient(email.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}), nil

	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}
}

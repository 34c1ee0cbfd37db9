// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mbd888/walletguard/internal/checks"
	"github.com/mbd888/walletguard/internal/config"
	"github.com/mbd888/walletguard/internal/features"
	"github.com/mbd888/walletguard/internal/health"
	"github.com/mbd888/walletguard/internal/idgen"
	"github.com/mbd888/walletguard/internal/logging"
	"github.com/mbd888/walletguard/internal/metrics"
	"github.com/mbd888/walletguard/internal/oracle"
	"github.com/mbd888/walletguard/internal/pagination"
	"github.com/mbd888/walletguard/internal/ratelimit"
	"github.com/mbd888/walletguard/internal/realtime"
	"github.com/mbd888/walletguard/internal/risk"
	"github.com/mbd888/walletguard/internal/security"
	"github.com/mbd888/walletguard/internal/syncutil"
	"github.com/mbd888/walletguard/internal/traces"
	"github.com/mbd888/walletguard/internal/transactions"
	"github.com/mbd888/walletguard/internal/validation"
)

// Server handles HTTP requests for the wallet scoring API
type Server struct {
	cfg         *config.Config
	provider    oracle.Provider
	txStore     transactions.Store
	checkStore  checks.Store
	engine      *risk.Engine
	realtimeHub *realtime.Hub
	rateLimiter *ratelimit.Limiter
	health      *health.Registry

	// Serializes analyses per wallet so concurrent requests for the same
	// address don't race to record duplicate checks.
	analyzeLocks *syncutil.KeyedMutex
	db          *sql.DB       // nil unless PostgreSQL storage is active
	mongoClient *mongo.Client // nil unless MongoDB storage is active
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger

	cancelRunCtx context.CancelFunc
	stopTracing  func(context.Context) error

	// Health check state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithProvider overrides the oracle provider chosen from config.
// Tests use this to score against a scripted oracle.
func WithProvider(p oracle.Provider) Option {
	return func(s *Server) {
		s.provider = p
	}
}

// WithStores overrides the storage backends chosen from config.
func WithStores(tx transactions.Store, chk checks.Store) Option {
	return func(s *Server) {
		s.txStore = tx
		s.checkStore = chk
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
		health: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Storage: injected > MongoDB > PostgreSQL > in-memory
	switch {
	case s.txStore != nil && s.checkStore != nil:
		s.logger.Info("using injected storage")

	case cfg.MongoURL != "":
		client, err := connectMongo(ctx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDB)
		s.mongoClient = client
		s.txStore = transactions.NewMongoStore(db)
		s.checkStore = checks.NewMongoStore(db)
		s.logger.Info("using MongoDB storage",
			"url", maskDSN(cfg.MongoURL),
			"database", cfg.MongoDB)

	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		txStore := transactions.NewPostgresStore(db)
		if err := txStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate transactions table", "error", err)
		}
		checkStore := checks.NewPostgresStore(db)
		if err := checkStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate wallet_checks table", "error", err)
		}
		s.txStore = txStore
		s.checkStore = checkStore
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

	default:
		s.txStore = transactions.NewMemoryStore()
		s.checkStore = checks.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Oracle: injected > configured mode
	if s.provider == nil {
		switch cfg.OracleMode {
		case config.OracleRules:
			s.provider = oracle.NewStaticProvider(oracle.NewRuleOracle())
			s.logger.Info("scoring with built-in rule oracle")
		case config.OracleRemote:
			s.provider = oracle.NewStaticProvider(oracle.NewRemoteOracle(cfg.ScorerURL))
			s.logger.Info("scoring via remote inference service", "url", cfg.ScorerURL)
		default:
			s.provider = oracle.NewFileProvider(cfg.ModelPath)
			s.logger.Info("scoring with decision forest artifact", "path", cfg.ModelPath)
		}
	}

	s.engine = risk.NewEngine(s.provider, s.txStore, s.logger)
	s.realtimeHub = realtime.NewHub(s.logger)
	s.analyzeLocks = syncutil.NewKeyedMutex()

	s.registerHealthChecks()

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// connectMongo dials MongoDB and verifies the connection before handing
// the client out. Server selection is capped so a bad URL fails fast.
func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to open mongo connection: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return client, nil
}

// registerHealthChecks wires the active backends into the health registry
func (s *Server) registerHealthChecks() {
	if s.db != nil {
		db := s.db
		s.health.Register("database", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}

	if s.mongoClient != nil {
		client := s.mongoClient
		s.health.Register("mongodb", func(ctx context.Context) health.Status {
			if err := client.Ping(ctx, nil); err != nil {
				return health.Status{Name: "mongodb", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "mongodb", Healthy: true}
		})
	}

	provider := s.provider
	s.health.Register("oracle", func(ctx context.Context) health.Status {
		if _, err := provider.Oracle(ctx); err != nil {
			return health.Status{Name: "oracle", Healthy: false, Detail: err.Error()}
		}
		return health.Status{Name: "oracle", Healthy: true}
	})
}

// maskDSN hides credentials in a connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "invalid-dsn"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware with custom handler
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS with allowed origins from config
	s.router.Use(security.CORSMiddleware(s.cfg.AllowedOrigins))

	// Request size limits
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.RateLimitRPM,
		BurstSize:         s.cfg.RateLimitRPM / 4,
		CleanupInterval:   5 * time.Minute,
	})
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID middleware
	s.router.Use(s.requestIDMiddleware())

	// Logging middleware
	s.router.Use(s.loggingMiddleware())
}

// requestIDMiddleware adds a unique request ID to each request
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		// Attach the ID and a base logger to the request context so
		// handlers can pull a request-scoped logger with logging.L
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// loggingMiddleware logs requests with timing
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}

		switch {
		case status >= 500:
			logger.Error("request failed", attrs...)
		case status >= 400:
			logger.Warn("request error", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health and metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket stream for live risk activity
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// Service info
	s.router.GET("/api", s.infoHandler)

	// V1 API
	v1 := s.router.Group("/v1")
	v1.Use(validation.AddressParamMiddleware())
	{
		v1.POST("/wallets/:address/analyze", s.analyzeWalletHandler)
		v1.GET("/wallets/:address/checks", s.listWalletChecksHandler)
		v1.GET("/wallets/:address/transactions", s.listTransactionsHandler)
		v1.GET("/checks/recent", s.recentChecksHandler)
		v1.POST("/transactions", s.ingestTransactionHandler)
		v1.POST("/score", s.scoreHandler)
	}
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// healthHandler returns overall health status
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.health.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// livenessHandler returns whether the process is alive
func (s *Server) livenessHandler(c *gin.Context) {
	if s.healthy.Load() {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
}

// readinessHandler returns whether the server is ready for traffic
func (s *Server) readinessHandler(c *gin.Context) {
	if s.ready.Load() {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
}

// infoHandler describes the service
func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "walletguard",
		"description": "Fraud risk scoring for wallet transaction histories",
		"version":     "0.1.0",
		"oracle_mode": s.cfg.OracleMode,
	})
}

// analyzeWalletHandler runs the scoring pipeline over a wallet's stored
// transactions. Analysis itself never fails; storage or oracle trouble
// surfaces as an empty result set with the cause in the logs.
func (s *Server) analyzeWalletHandler(c *gin.Context) {
	ctx := c.Request.Context()
	address := validation.SanitizeAddress(c.Param("address"))

	// One analysis per wallet at a time, so two concurrent requests don't
	// both score the history and record two checks for the same moment.
	unlock, err := s.analyzeLocks.Lock(ctx, address)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "analysis_cancelled",
			"message": "Request cancelled while waiting for an in-flight analysis of this wallet",
		})
		return
	}
	defer unlock()

	results := s.engine.Analyze(ctx, address)

	check := checks.Summarize(address, results)
	if err := s.checkStore.Insert(ctx, check); err != nil {
		// The analysis already succeeded; do not fail the request over
		// a lost audit row.
		logging.L(ctx).Warn("failed to record wallet check",
			"address", address,
			"error", err)
	} else {
		metrics.ChecksRecordedTotal.WithLabelValues(string(check.RiskLevel)).Inc()
	}

	s.broadcastAnalysis(check, results)

	c.JSON(http.StatusOK, gin.H{
		"wallet":  address,
		"count":   len(results),
		"results": results,
		"check":   check,
	})
}

// broadcastAnalysis pushes one alert per high-risk transaction and a
// completion event for the recorded check.
func (s *Server) broadcastAnalysis(check *checks.WalletCheck, results []*risk.AnalysisResult) {
	for _, r := range results {
		if r.RiskLevel != risk.LevelHigh {
			continue
		}
		s.realtimeHub.BroadcastRiskAlert(map[string]interface{}{
			"wallet":         r.WalletID,
			"transaction_id": r.TransactionID,
			"method":         r.Method,
			"risk_score":     r.RiskScore,
			"risk_level":     string(r.RiskLevel),
		})
	}

	s.realtimeHub.BroadcastCheckCompleted(map[string]interface{}{
		"check_id":     check.ID,
		"address":      check.Address,
		"risk_level":   string(check.RiskLevel),
		"top_score":    check.TopScore,
		"transactions": check.Transactions,
		"reason":       check.Reason,
	})
}

// listWalletChecksHandler returns past checks for one wallet, newest first
func (s *Server) listWalletChecksHandler(c *gin.Context) {
	ctx := c.Request.Context()
	address := validation.SanitizeAddress(c.Param("address"))

	limit := parseLimit(c.Query("limit"), 20, 100)

	items, err := s.checkStore.ListByAddress(ctx, address, limit)
	if err != nil {
		logging.L(ctx).Error("failed to list wallet checks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list wallet checks",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"count":   len(items),
		"checks":  items,
	})
}

// recentChecksHandler returns checks across all wallets with cursor pagination
func (s *Server) recentChecksHandler(c *gin.Context) {
	ctx := c.Request.Context()

	limit := parseLimit(c.Query("limit"), 20, 100)

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor is not a valid page token",
		})
		return
	}

	// Fetch one extra row to learn whether another page exists
	items, err := s.checkStore.ListRecent(ctx, limit+1, cursor)
	if err != nil {
		logging.L(ctx).Error("failed to list recent checks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list recent checks",
		})
		return
	}

	page, next, hasMore := pagination.ComputePage(items, limit, func(ch *checks.WalletCheck) (time.Time, string) {
		return ch.CheckedAt, ch.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"checks":      page,
		"count":       len(page),
		"next_cursor": next,
		"has_more":    hasMore,
	})
}

// listTransactionsHandler returns a wallet's stored transactions in insertion order
func (s *Server) listTransactionsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	address := validation.SanitizeAddress(c.Param("address"))

	recs, err := s.txStore.FetchByWallet(ctx, address)
	if err != nil {
		logging.L(ctx).Error("failed to fetch transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to fetch transactions",
		})
		return
	}
	if recs == nil {
		recs = []transactions.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":       address,
		"count":        len(recs),
		"transactions": recs,
	})
}

// ingestTransactionHandler stores one raw transaction document. Only
// wallet_id is mandatory; all other fields are stored as sent and get
// defaults at scoring time.
func (s *Server) ingestTransactionHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var rec transactions.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON object",
		})
		return
	}

	wallet := transactions.WalletID(rec)
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_wallet",
			"message": "wallet_id is required",
		})
		return
	}
	if !validation.IsValidWalletAddress(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "wallet_id must be a valid wallet address (0x followed by 40 hex characters)",
		})
		return
	}
	rec[transactions.KeyWalletID] = validation.SanitizeAddress(wallet)

	if errs := validation.Validate(
		validation.MaxLength("id", transactions.ID(rec), validation.MaxIDLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"fields":  errs,
		})
		return
	}

	id, err := s.txStore.Insert(ctx, rec)
	if err != nil {
		logging.L(ctx).Error("failed to store transaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to store transaction",
		})
		return
	}

	metrics.TransactionsIngestedTotal.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"id":        id,
		"wallet_id": rec[transactions.KeyWalletID],
	})
}

// scoreHandler scores one ad-hoc transaction document without storing
// it. A body carrying a "vectors" array is answered in the raw batch
// contract instead, so an instance holding the model artifact can act
// as the scorer behind another instance running in remote oracle mode.
func (s *Server) scoreHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON object",
		})
		return
	}

	var batch struct {
		Vectors [][]float64 `json:"vectors"`
	}
	if err := json.Unmarshal(body, &batch); err == nil && len(batch.Vectors) > 0 {
		s.scoreVectors(c, batch.Vectors)
		return
	}

	var rec transactions.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON object",
		})
		return
	}

	result, err := s.engine.ScoreRecord(ctx, rec)
	if err != nil {
		if errors.Is(err, features.ErrEmptyRecord) || errors.Is(err, features.ErrNotRecord) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_record",
				"message": err.Error(),
			})
			return
		}
		logging.L(ctx).Error("failed to score transaction", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "oracle_unavailable",
			"message": "Scoring oracle is unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// scoreVectors answers a raw vector batch with one probability row per
// vector, the wire contract the remote oracle client speaks.
func (s *Server) scoreVectors(c *gin.Context, vectors [][]float64) {
	rows, err := s.engine.ScoreVectors(c.Request.Context(), vectors)
	if err != nil {
		if errors.Is(err, oracle.ErrBadVector) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_vectors",
				"message": err.Error(),
			})
			return
		}
		logging.L(c.Request.Context()).Error("failed to score vectors", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "oracle_unavailable",
			"message": "Scoring oracle is unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"probabilities": rows})
}

// Run starts the server and blocks until shutdown
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	stopTracing, err := traces.Init(ctx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.stopTracing = stopTracing
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
			"oracle_mode", s.cfg.OracleMode,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start the websocket hub
	go s.realtimeHub.Run(runCtx)

	// Sample connection pool stats while a database is attached
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after a brief startup delay
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	// Flip the readiness probe before anything else
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to observe the readiness change
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	if s.stopTracing != nil {
		if err := s.stopTracing(ctx); err != nil {
			s.logger.Error("tracing shutdown error", "error", err)
		}
	}

	if s.mongoClient != nil {
		if err := s.mongoClient.Disconnect(ctx); err != nil {
			s.logger.Error("mongo disconnect error", "error", err)
		} else {
			s.logger.Info("mongo connection closed")
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router exposes the gin engine for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// parseLimit reads a limit query value with a default and an upper cap
func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// generateRequestID creates a random request ID
func generateRequestID() string {
	return idgen.Hex(16)
}

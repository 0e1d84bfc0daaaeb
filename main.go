package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	apihttp "energy-optimizer/internal/api/http"
	"energy-optimizer/internal/audit"
	"energy-optimizer/internal/auth"
	"energy-optimizer/internal/observability/metrics"
	optapp "energy-optimizer/internal/optimization/application"
	optimization "energy-optimizer/internal/optimization/domain"
	optinterfaces "energy-optimizer/internal/optimization/interfaces"
	"energy-optimizer/internal/prediction/infrastructure/artifact"
	usageapp "energy-optimizer/internal/usage/application"
	usage "energy-optimizer/internal/usage/domain"
	"energy-optimizer/internal/usage/infrastructure/memory"
	usagepostgres "energy-optimizer/internal/usage/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var (
		store   usage.Store
		journal audit.Recorder
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		store = usagepostgres.NewDatasetStore(db)
		journal = audit.NewPostgresRecorder(db)
	} else {
		logger.Printf("DATABASE_URL not set; datasets are kept in memory")
		store = memory.NewDatasetStore()
		journal = audit.NewLogRecorder(logger)
	}
	metrics.Init(store, logger)

	predictor, err := artifact.LoadPredictor(cfg.ModelPath)
	if err != nil {
		logger.Fatalf("model load error: %v", err)
	}

	policy, err := optapp.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		logger.Fatalf("optimizer policy error: %v", err)
	}
	engine, err := optimization.NewEngine(policy)
	if err != nil {
		logger.Fatalf("optimizer engine error: %v", err)
	}

	publishers := []optapp.ResultPublisher{optinterfaces.NewLoggingPublisher(logger)}
	if cfg.MQTTBroker != "" {
		mqttPublisher, err := optinterfaces.NewMQTTPublisher(optinterfaces.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		if err != nil {
			logger.Fatalf("mqtt connect error: %v", err)
		}
		defer mqttPublisher.Close()
		publishers = append(publishers, mqttPublisher)
		logger.Printf("publishing optimization results to %s", cfg.MQTTBroker)
	}
	if cfg.ResultWebhookURL != "" {
		tpl, err := optinterfaces.NewTemplate(cfg.ResultNotifyTemplate)
		if err != nil {
			logger.Fatalf("notify template error: %v", err)
		}
		webhook, err := optinterfaces.NewWebhookPublisher(cfg.ResultWebhookURL,
			optinterfaces.WithTemplate(tpl),
			optinterfaces.WithHTTPClient(&http.Client{Timeout: cfg.ResultWebhookTimeout}))
		if err != nil {
			logger.Fatalf("webhook publisher error: %v", err)
		}
		publishers = append(publishers, webhook)
	}
	publisher := optinterfaces.NewMultiPublisher(publishers...)

	datasetService, err := usageapp.NewDatasetService(store, logger)
	if err != nil {
		logger.Fatalf("dataset service error: %v", err)
	}
	optimizer, err := optapp.NewService(datasetService, engine, logger, optapp.WithPublisher(publisher))
	if err != nil {
		logger.Fatalf("optimizer service error: %v", err)
	}

	mux := http.NewServeMux()
	if err := apihttp.Register(mux, apihttp.Dependencies{
		Datasets:   datasetService,
		Optimizer:  optimizer,
		Predictor:  predictor,
		Journal:    journal,
		TenantID:   cfg.TenantID,
		CostPerKWh: cfg.CostPerKWh,
		Logger:     logger,
	}); err != nil {
		logger.Fatalf("http routes error: %v", err)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authPolicy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/api/v1/health"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), authPolicy, cfg.TenantID)
	if !authMiddleware.Enabled() {
		logger.Printf("AUTH_JWT_SECRET not set; requests run as tenant %s", cfg.TenantID)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL     string
	HTTPAddr        string
	TenantID        string
	JWTSecret       string
	ModelPath       string
	PolicyPath      string
	CostPerKWh      float64
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	ResultWebhookURL     string
	ResultNotifyTemplate string
	ResultWebhookTimeout time.Duration
}

func loadConfig() config {
	return config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:        getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		ModelPath:       getenvDefault("MODEL_PATH", ""),
		PolicyPath:      getenvDefault("OPTIMIZER_POLICY", ""),
		CostPerKWh:      getenvFloatDefault("COST_PER_KWH", 6.5),
		MQTTBroker:      getenvDefault("MQTT_BROKER", ""),
		MQTTClientID:    getenvDefault("MQTT_CLIENT_ID", "energy-optimizer"),
		MQTTUsername:    getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:    getenvDefault("MQTT_PASSWORD", ""),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "energy_optimizer"),

		ResultWebhookURL:     getenvDefault("RESULT_WEBHOOK_URL", ""),
		ResultNotifyTemplate: getenvDefault("RESULT_NOTIFY_TEMPLATE", ""),
		ResultWebhookTimeout: getenvDuration("RESULT_WEBHOOK_TIMEOUT", 10*time.Second),
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"cyclewatch/internal/auth"
	"cyclewatch/internal/config"
	"cyclewatch/internal/monitor/application"
	"cyclewatch/internal/monitor/infrastructure/postgres"
	monitorhttp "cyclewatch/internal/monitor/interfaces/http"
	"cyclewatch/internal/monitor/notify"
	"cyclewatch/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger, cfg.Measurement)

	sampleRepo := postgres.NewSampleRepository(db)
	cycleRepo := postgres.NewCycleRepository(db, postgres.WithCyclesTable(cfg.Measurement))
	alertRepo := postgres.NewAlertRepository(db)

	notifier := buildNotifier(cfg, logger)
	if cfg.SendTestNotification {
		if err := notifier.Notify(context.Background(), "monitor", "device monitor starting"); err != nil {
			logger.Printf("test notification error: %v", err)
		}
	}

	engines := make([]*application.Engine, 0, len(cfg.Entities))
	statusSources := make(map[string]monitorhttp.StatusSource, len(cfg.Entities))
	for _, entityCfg := range cfg.Entities {
		settings, err := cfg.Settings(entityCfg)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		engine, err := application.NewEngine(settings, sampleRepo, cycleRepo, alertRepo, notifier, logger)
		if err != nil {
			logger.Fatalf("engine %s error: %v", settings.Entity, err)
		}
		engines = append(engines, engine)
		statusSources[settings.Entity] = engine
		logger.Printf("monitoring %s: threshold=%.1fW min_interval=%s check_every=%s statistic=%s",
			settings.Entity, settings.ThresholdWatt, settings.MinimumInterval, settings.CheckInterval, settings.Statistic)
	}

	supervisor := application.NewSupervisor(engines, logger)
	go supervisor.Start(context.Background())

	ingestHandler, err := monitorhttp.NewIngestHandler(sampleRepo, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/samples", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/status", monitorhttp.NewStatusHandler(statusSources))
	mux.Handle("/api/v1/cycles", monitorhttp.NewCyclesHandler(cycleRepo))
	mux.Handle("/api/v1/alerts", monitorhttp.NewAlertsHandler(alertRepo))
	mux.Handle("/api/v1/exports/cycles.csv", monitorhttp.NewExportHandler(cycleRepo, monitorhttp.FormatCSV))
	mux.Handle("/api/v1/exports/cycles.xlsx", monitorhttp.NewExportHandler(cycleRepo, monitorhttp.FormatXLSX))
	mux.Handle("/api/v1/exports/report.pdf", monitorhttp.NewExportHandler(cycleRepo, monitorhttp.FormatPDF))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func buildNotifier(cfg config.Config, logger *log.Logger) application.Notifier {
	if cfg.NotifyWebhookURL == "" {
		return notify.NewLogNotifier(logger)
	}
	channel, err := notify.NewWebhookChannel(cfg.NotifyWebhookURL, notify.WithTimeout(cfg.NotifyTimeout()))
	if err != nil {
		logger.Fatalf("notify webhook error: %v", err)
	}
	tpl, err := notify.NewTemplate(cfg.NotifyTemplate)
	if err != nil {
		logger.Fatalf("notify template error: %v", err)
	}
	webhook, err := notify.NewNotifier(channel, tpl)
	if err != nil {
		logger.Fatalf("notifier error: %v", err)
	}
	return notify.NewMultiNotifier(webhook, notify.NewLogNotifier(logger))
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

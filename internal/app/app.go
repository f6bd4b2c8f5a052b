package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/rsvphook/internal/config"
	"github.com/hitoshi/rsvphook/internal/database"
	"github.com/hitoshi/rsvphook/internal/form"
	"github.com/hitoshi/rsvphook/internal/handler"
	"github.com/hitoshi/rsvphook/internal/household"
	"github.com/hitoshi/rsvphook/internal/intake"
	"github.com/hitoshi/rsvphook/internal/ledger"
	"github.com/hitoshi/rsvphook/internal/logger"
	"github.com/hitoshi/rsvphook/internal/metrics"
	"github.com/hitoshi/rsvphook/internal/middleware"
	"github.com/hitoshi/rsvphook/internal/repository"
	"github.com/hitoshi/rsvphook/internal/rsvp"
	"github.com/hitoshi/rsvphook/internal/security"
	"github.com/hitoshi/rsvphook/internal/wedding"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定のログレベルでロガーを再構成する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("default_provider", cfg.DefaultProvider),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebhook受信サーバーを起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. フォームラベル定義の読み込み
	labels, err := form.LoadLabels(cfg.FormLabelsFile)
	if err != nil {
		return fmt.Errorf("failed to load form labels: %w", err)
	}

	// 2. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 3. リポジトリの初期化
	weddingRepo := repository.NewPostgresWeddingRepo(db)
	submissionRepo := repository.NewPostgresSubmissionRepo(db)
	householdRepo := repository.NewPostgresHouseholdRepo(db)
	guestRepo := repository.NewPostgresGuestRepo(db)

	// 4. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 5. ドメインサービスの初期化
	router := intake.NewRouter(
		wedding.NewResolver(weddingRepo),
		ledger.NewLedger(submissionRepo),
		household.NewMatcher(householdRepo),
		rsvp.NewApplier(householdRepo, guestRepo),
		security.NewTextSanitizer(),
		collector,
		intake.RouterConfig{
			Labels:      labels,
			CountryCode: cfg.DefaultCountryCode,
		},
	)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitWebhook))
	defer rateLimiter.Stop()
	metrics.RegisterRateLimiterClients(reg, rateLimiter.LimiterCount)

	deps := &handler.RouterDeps{
		Logger:        slog.Default(),
		RateLimiter:   rateLimiter,
		HealthChecker: db,
		Gatherer:      reg,
		WebhookHandler: handler.NewWebhookHandler(router, collector, handler.WebhookHandlerConfig{
			Labels:          labels,
			DefaultProvider: cfg.DefaultProvider,
			MaxBodyBytes:    cfg.MaxBodyBytes,
		}),
	}

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("webhook server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down webhook server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("webhook server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

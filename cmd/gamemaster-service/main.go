package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/cheildo/nexus-checkers/internal/auth"
	"github.com/cheildo/nexus-checkers/internal/events"
	"github.com/cheildo/nexus-checkers/internal/gamemaster"
	"github.com/cheildo/nexus-checkers/internal/gateway"
	"github.com/cheildo/nexus-checkers/internal/httpapi"
	"github.com/cheildo/nexus-checkers/internal/leaderboard"
	"github.com/cheildo/nexus-checkers/internal/matcharchive"
	"github.com/cheildo/nexus-checkers/internal/pkg/database"
	"github.com/cheildo/nexus-checkers/internal/pkg/kafka"
	"github.com/cheildo/nexus-checkers/internal/pkg/redis"
	"github.com/cheildo/nexus-checkers/internal/playerprofile"
)

const serviceName = "nexus.checkers.GameMaster"

// Main application struct to hold dependencies.
type application struct {
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	closers    []func() error
}

func main() {
	// A .env file is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	// --- Configuration ---
	viper.SetConfigName("gamemaster-service")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/development")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		slog.Error("Failed to read configuration file", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(viper.GetString("log.level"), viper.GetString("log.format")))

	app := &application{}
	defer app.close()

	// --- Optional backing stores ---
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := app.openDatabase(startupCtx)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	rdb, err := app.openRedis(startupCtx)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	cancelStartup()

	// --- Event sinks ---
	var (
		sinks   []events.Sink
		archive matcharchive.Repository
		board   leaderboard.Board
	)
	if brokers := viper.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, viper.GetString("kafka.match_events_topic"))
		app.closers = append(app.closers, producer.Close)
		sinks = append(sinks, events.NewKafkaSink(producer))
		slog.Info("Publishing match events to Kafka", "topic", viper.GetString("kafka.match_events_topic"))
	}
	if db != nil {
		archive = matcharchive.NewRepository(db)
		sinks = append(sinks, matcharchive.NewSink(archive))
	}
	if rdb != nil {
		board = leaderboard.New(rdb, viper.GetString("redis.leaderboard_key"))
		sinks = append(sinks, leaderboard.NewSink(board))
	}
	dispatcher := events.NewDispatcher(
		viper.GetInt("events.buffer_size"),
		viper.GetDuration("events.sink_timeout"),
		sinks...,
	)

	// --- Game master ---
	orchestrator := gamemaster.NewOrchestrator(gamemaster.Config{
		InboxSize:    viper.GetInt("gamemaster.inbox_size"),
		Retention:    viper.GetDuration("gamemaster.retention"),
		ReapInterval: viper.GetDuration("gamemaster.reap_interval"),
	}, gamemaster.NewCheckersEngine, dispatcher)

	// --- Transport ---
	authConfig := auth.Config{
		JWTSecret:     viper.GetString("jwt.secret_key"),
		TokenDuration: viper.GetDuration("jwt.token_duration_minutes") * time.Minute,
	}
	var (
		verifier       gateway.TokenVerifier
		authHandler    *auth.HTTPHandler
		profileHandler *playerprofile.HTTPHandler
	)
	if viper.GetBool("jwt.required") {
		verifier = auth.NewTokens(authConfig)
	}
	if db != nil {
		authHandler = auth.NewHTTPHandler(auth.NewService(auth.NewRepository(db), authConfig))
		profileHandler = playerprofile.NewHTTPHandler(playerprofile.NewService(playerprofile.NewRepository(db)))
	}

	connections := gateway.NewConnectionManager()
	router := httpapi.NewRouter(httpapi.Deps{
		Websocket:   gateway.NewWebsocketHandler(orchestrator, verifier, connections),
		Matches:     orchestrator,
		Connections: connections,
		Auth:        authHandler,
		Profiles:    profileHandler,
		Archive:     archive,
		Leaderboard: board,
	})

	// --- Start ---
	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(ctx)
	go orchestrator.Run(ctx)

	app.startHTTPServer(router, viper.GetString("http_server.port"))
	app.startGRPCServer(viper.GetString("grpc_server.port"))
	startDiagnosticsServer(viper.GetString("diagnostics.port"))

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down servers...")
	app.health.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	cancel() // Stop the game master and event dispatcher.
	app.grpcServer.GracefulStop()
	slog.Info("Servers shut down gracefully.")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// openDatabase connects to PostgreSQL when database.host is set. A nil DB disables
// accounts and the match archive.
func (app *application) openDatabase(ctx context.Context) (*sql.DB, error) {
	if viper.GetString("database.host") == "" {
		slog.Info("No database configured; accounts and match archive disabled.")
		return nil, nil
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		viper.GetString("database.host"),
		viper.GetString("database.port"),
		viper.GetString("database.user"),
		viper.GetString("database.password"),
		viper.GetString("database.db_name"),
		viper.GetString("database.ssl_mode"),
	)
	db, err := database.NewPostgresDB(ctx, database.Config{
		DSN:             dsn,
		MaxOpenConns:    viper.GetInt("database.max_open_conns"),
		MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db.Close)
	slog.Info("Database connection successful.")
	return db, nil
}

// openRedis connects to Redis when redis.addr is set. A nil client disables the leaderboard.
func (app *application) openRedis(ctx context.Context) (*goredis.Client, error) {
	addr := viper.GetString("redis.addr")
	if addr == "" {
		slog.Info("No Redis configured; leaderboard disabled.")
		return nil, nil
	}
	rdb, err := redis.NewClient(ctx, redis.Config{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
		PoolSize: viper.GetInt("redis.pool_size"),
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, rdb.Close)
	slog.Info("Redis connection successful.", "addr", addr)
	return rdb, nil
}

func (app *application) startHTTPServer(handler http.Handler, port string) {
	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Game master HTTP server listening", "port", port)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()
}

// startGRPCServer serves the standard health and reflection services so
// orchestrators and grpcurl can health-check the process.
func (app *application) startGRPCServer(port string) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		slog.Error("Failed to listen on gRPC port", "port", port, "error", err)
		os.Exit(1)
	}

	app.grpcServer = grpc.NewServer()
	app.health = health.NewServer()
	app.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(app.grpcServer, app.health)
	reflection.Register(app.grpcServer)

	go func() {
		slog.Info("Game master gRPC server listening", "address", lis.Addr().String())
		if err := app.grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server failed to serve", "error", err)
		}
	}()
}

func (app *application) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
}

func startDiagnosticsServer(port string) {
	go func() {
		slog.Info("Starting diagnostics server", "port", port)
		if err := http.ListenAndServe(fmt.Sprintf(":%s", port), nil); err != nil {
			slog.Error("Diagnostics server failed to start", "error", err)
		}
	}()
}

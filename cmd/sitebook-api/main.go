package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/catalog"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/config"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/database"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/events"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/inspections"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/permits"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/server"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sitebook-api",
		Short: "Sitebook construction management backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", "", "Postgres DSN (overrides env)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringSlice("watched-assignees", defaults.GetStringSlice("notifications.watched_assignees"), "Assignees whose inspections produce notifications")
	cmd.PersistentFlags().String("documents-path", defaults.GetString("storage.documents_path"), "Directory for uploaded permit documents")
	cmd.PersistentFlags().StringSlice("kafka-brokers", nil, "Kafka brokers for notification events (disabled when empty)")
	cmd.PersistentFlags().String("kafka-topic", defaults.GetString("kafka.topic"), "Kafka topic for notification events")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "notifications.watched_assignees", "watched-assignees")
	bindFlag(cmd, "storage.documents_path", "documents-path")
	bindFlag(cmd, "kafka.brokers", "kafka-brokers")
	bindFlag(cmd, "kafka.topic", "kafka-topic")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	db, err := database.Open(database.Config{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck

	rules, err := notifications.NewWatchRules(appConfig.WatchedAssignees, appConfig.MessagePrefix)
	if err != nil {
		return err
	}
	idProvider := records.NewUUIDProvider()
	synchronizer, err := notifications.NewSynchronizer(notifications.SynchronizerConfig{
		Rules:      rules,
		IDProvider: idProvider,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	realtime := server.NewRealtimeDispatcher()
	publishers := notifications.Publishers{realtime}
	if appConfig.KafkaEnabled() {
		kafkaPublisher, err := events.NewKafkaPublisher(events.KafkaPublisherConfig{
			Brokers: appConfig.KafkaBrokers,
			Topic:   appConfig.KafkaTopic,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close() //nolint:errcheck
		publishers = append(publishers, kafkaPublisher)
		logger.Info("kafka notification events enabled", zap.Strings("brokers", appConfig.KafkaBrokers), zap.String("topic", appConfig.KafkaTopic))
	}

	inspectionService, err := inspections.NewService(inspections.ServiceConfig{
		Database:     db,
		IDProvider:   idProvider,
		Synchronizer: synchronizer,
		Publisher:    publishers,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	documents, err := storage.NewLocalStorage(appConfig.DocumentsPath)
	if err != nil {
		return err
	}
	permitService, err := permits.NewService(permits.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Documents:  documents,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	stores, err := catalog.NewStores(db, idProvider, logger)
	if err != nil {
		return err
	}

	var limiter *server.RateLimiter
	if appConfig.RequestsPerSecond > 0 {
		limiter = server.NewRateLimiter(rate.Limit(appConfig.RequestsPerSecond), appConfig.RateLimitBurst)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Inspections:    inspectionService,
		Permits:        permitService,
		Catalog:        stores,
		Realtime:       realtime,
		WatchRules:     rules,
		RateLimiter:    limiter,
		AllowedOrigins: appConfig.CORSAllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
	}
	// Open notification streams end when shutdown begins.
	httpServer.RegisterOnShutdown(cancelStreams)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Package bootstrap wires optional infrastructure from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/vozsalud/cita-platform/internal/config"
	"github.com/vozsalud/cita-platform/internal/directory"
	"github.com/vozsalud/cita-platform/internal/noshow"
	"github.com/vozsalud/cita-platform/internal/session"
	"github.com/vozsalud/cita-platform/internal/speech"
	"github.com/vozsalud/cita-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildDirectoryStore selects the directory backend from configuration. The
// returned closer releases backend resources; it is never nil.
func BuildDirectoryStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (directory.Store, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		store  directory.Store
		closer = func() {}
	)
	switch cfg.DirectoryBackend {
	case "sheets":
		s, err := directory.NewSheetsStore(ctx, directory.SheetsConfig{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: sheets directory: %w", err)
		}
		store = s
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: postgres directory: %w", err)
		}
		store = directory.NewPostgresStore(pool, logger)
		closer = pool.Close
	case "", "memory":
		store = directory.NewMemoryStore()
		logger.Warn("directory backend is in-memory, data is lost on restart")
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown directory backend %q", cfg.DirectoryBackend)
	}

	if cfg.BackupDir != "" {
		store = directory.NewBackupStore(store, cfg.BackupDir, logger)
		logger.Info("csv backups enabled", "dir", cfg.BackupDir)
	}
	return store, closer, nil
}

// BuildSessionStore prefers Redis and falls back to process memory.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) session.Store {
	if redisClient != nil {
		return session.NewRedisStore(redisClient, cfg.SessionTTL)
	}
	if logger != nil {
		logger.Warn("session store is in-memory, conversations do not survive restarts")
	}
	return session.NewMemoryStore()
}

// BuildArchiveDB opens the long-term transcript database when enabled.
func BuildArchiveDB(cfg *appconfig.Config, logger *logging.Logger) *sql.DB {
	if cfg == nil || !cfg.PersistTranscripts || cfg.DatabaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Warn("transcript archive unavailable", "error", err)
		return nil
	}
	return db
}

// BuildPredictor loads no-show weights from disk, defaulting to the built-in
// prior when no file is configured.
func BuildPredictor(cfg *appconfig.Config, logger *logging.Logger) *noshow.Predictor {
	if logger == nil {
		logger = logging.Default()
	}
	weights := noshow.DefaultWeights()
	if cfg != nil && cfg.NoShowWeightsPath != "" {
		loaded, err := noshow.LoadWeights(cfg.NoShowWeightsPath)
		if err != nil {
			logger.Warn("falling back to default no-show weights", "error", err)
		} else {
			weights = loaded
		}
	}
	return noshow.New(weights, logger)
}

// BuildTranscriber creates the speech-to-text client, nil when not configured.
func BuildTranscriber(cfg *appconfig.Config, logger *logging.Logger) *speech.HTTPTranscriber {
	if cfg == nil || cfg.SpeechBaseURL == "" {
		return nil
	}
	tr, err := speech.NewHTTPTranscriber(speech.Config{
		BaseURL: cfg.SpeechBaseURL,
		APIKey:  cfg.SpeechAPIKey,
		Model:   cfg.SpeechModel,
		Logger:  logger,
	})
	if err != nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("speech transcription unavailable", "error", err)
		return nil
	}
	return tr
}

// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for KnowledgeConnect.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: KNOWLEDGECONNECT_MONGO_URI, KNOWLEDGECONNECT_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "knowledge_connect", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "JWT signing secret (must be strong in production)"},
	{Name: "jwt_expiry", Default: "168h", Desc: "JWT token lifetime (e.g., 168h, 24h)"},

	{Name: "default_meeting_capacity", Default: 10, Desc: "Meeting capacity when the organizer does not set one"},
	{Name: "meeting_sweep_interval", Default: "1m", Desc: "How often elapsed meetings are marked completed (e.g., 1m, 30s)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for generated meeting links"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// Merging precedence: flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "KNOWLEDGECONNECT", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTExpiry: appValues.Duration("jwt_expiry", 168*time.Hour),

		DefaultMeetingCapacity: appValues.Int("default_meeting_capacity"),
		MeetingSweepInterval:   appValues.Duration("meeting_sweep_interval", time.Minute),

		BaseURL: appValues.String("base_url"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI format is checked here to catch configuration errors
// early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must not be empty")
	}
	if coreCfg.Env == "prod" && appCfg.JWTSecret == "dev-only-change-me-please-0123456789ABCDEF" {
		return fmt.Errorf("jwt_secret must be changed from the development default in production")
	}

	if appCfg.DefaultMeetingCapacity <= 0 {
		return fmt.Errorf("default_meeting_capacity must be positive, got %d", appCfg.DefaultMeetingCapacity)
	}
	if appCfg.MeetingSweepInterval <= 0 {
		return fmt.Errorf("meeting_sweep_interval must be positive, got %s", appCfg.MeetingSweepInterval)
	}

	return nil
}

// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, CORS, and request body limits. AppConfig is
// everything specific to this application.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Bearer-token authentication
	JWTSecret string        // Secret for signing API tokens (must be strong in production)
	JWTExpiry time.Duration // Token lifetime (e.g., 168h for one week)

	// Meeting defaults
	DefaultMeetingCapacity int           // Capacity applied when the organizer does not set one
	MeetingSweepInterval   time.Duration // How often elapsed meetings are marked completed

	// Base URL used when generating meeting join links
	BaseURL string // e.g., "https://knowledgeconnect.app" or "http://localhost:3000"
}

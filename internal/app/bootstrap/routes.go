// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	healthfeature "github.com/knowledgeconnect/knowledgeconnect/internal/app/features/health"
	meetingsfeature "github.com/knowledgeconnect/knowledgeconnect/internal/app/features/meetings"
	topicsfeature "github.com/knowledgeconnect/knowledgeconnect/internal/app/features/topics"
	usermeetingsfeature "github.com/knowledgeconnect/knowledgeconnect/internal/app/features/usermeetings"
	usersfeature "github.com/knowledgeconnect/knowledgeconnect/internal/app/features/users"
	userstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/users"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/limits"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. It creates the token manager,
// applies the bearer-token middleware globally, and mounts the feature
// routers: health, users, topics, meetings, and user-meetings.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTExpiry, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadBearerUser fetches fresh user data on
	// each request. This ensures profile updates and deleted accounts
	// take effect immediately rather than living on inside old tokens.
	tokens.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	r := chi.NewRouter()

	// Cap request bodies before any handler reads them.
	r.Use(limits.Body)

	// Global auth middleware: loads the bearer user into context when a
	// valid token is present. Individual routers decide whether to require it.
	r.Use(tokens.LoadBearerUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Accounts and authentication
	usersHandler := usersfeature.NewHandler(deps.MongoDatabase, tokens, logger)
	r.Mount("/api/users", usersfeature.Routes(usersHandler))

	// Discussion topics
	topicsHandler := topicsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/api/topics", topicsfeature.Routes(topicsHandler))

	// Meetings
	meetingsHandler := meetingsfeature.NewHandler(deps.MongoDatabase, appCfg.BaseURL, logger)
	r.Mount("/api/meetings", meetingsfeature.Routes(meetingsHandler))

	// Participation (join/leave and mapping queries)
	umHandler := usermeetingsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/api/user-meetings", usermeetingsfeature.Routes(umHandler))

	return r, nil
}

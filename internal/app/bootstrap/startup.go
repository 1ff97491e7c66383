// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	meetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/meetings"
	usermeetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/usermeetings"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/workers"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.uber.org/zap"
)

// meetingSweep is started in Startup and stopped in Shutdown.
var meetingSweep *workers.MeetingSweep

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// The store falls back to models.DefaultCapacity; keep the
	// configurable default in sync with it so operators can raise the
	// default fleet-wide without a rebuild.
	models.SetDefaultCapacity(appCfg.DefaultMeetingCapacity)

	mappings := usermeetingstore.New(deps.MongoDatabase)
	meetings := meetingstore.New(deps.MongoDatabase, mappings)
	meetingSweep = workers.NewMeetingSweep(meetings, logger, appCfg.MeetingSweepInterval)
	meetingSweep.Start()

	logger.Info("startup complete",
		zap.String("env", coreCfg.Env),
		zap.Int("default_meeting_capacity", appCfg.DefaultMeetingCapacity))
	return nil
}

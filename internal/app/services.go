package app

import (
	repos "github.com/yungbote/waxal-backend/internal/data/repos/collection"
	"github.com/yungbote/waxal-backend/internal/modules/collection"
	"github.com/yungbote/waxal-backend/internal/observability"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

func wireWorkflow(log *logger.Logger, metrics *observability.Metrics, reposet repos.Repos, v vars.Store, clients Clients) collection.Usecases {
	log.Info("Wiring collection workflow...")
	return collection.New(collection.UsecasesDeps{
		Log:       log,
		Metrics:   metrics,
		Repos:     reposet,
		Vars:      v,
		Messenger: clients.Messenger,
		Media:     clients.Twilio,
		Blob:      clients.Bucket,
		Audio:     clients.Audio,
	})
}

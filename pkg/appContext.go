package pkg

import (
	"github.com/mbroe/fotostrom/config"
	"github.com/mbroe/fotostrom/jobs"
)

type AppContext struct {
	Config     *config.Config
	JobManager *jobs.JobManager
	TaskQueue  *jobs.TaskQueue
}

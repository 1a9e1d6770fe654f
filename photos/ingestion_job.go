package photos

import "context"

const JobIdentifierRefresh = "FOTOSTROM_REFRESH_JOB"
const JobIdentifierBackup = "FOTOSTROM_BACKUP_JOB"
const JobIdentifierReindex = "FOTOSTROM_REINDEX_JOB"

type RefreshJob struct {
	scheduler *RefreshScheduler
}

func NewRefreshJob(scheduler *RefreshScheduler) *RefreshJob {
	return &RefreshJob{
		scheduler: scheduler,
	}
}

func (j *RefreshJob) ExecuteJob() error {
	return j.scheduler.Refresh(context.Background())
}

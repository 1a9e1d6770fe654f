package jobs

import (
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mbroe/fotostrom/metrics"
)

type JobFunc func() error

type jobInfo struct {
	name string
	job  JobFunc
}

type JobManager struct {
	scheduler *gocron.Scheduler
	jobs      map[string]jobInfo
}

func NewJobManager() *JobManager {
	scheduler := gocron.NewScheduler(time.UTC)

	return &JobManager{
		scheduler: scheduler,
		jobs:      make(map[string]jobInfo),
	}
}

func (j *JobManager) Start() {
	j.scheduler.StartBlocking()
}

func (j *JobManager) Stop() {
	j.scheduler.Stop()
}

func (j *JobManager) Cron(cronStr string, name string, job JobFunc, enabled bool) {
	jobInfo := jobInfo{
		name: name,
		job:  job,
	}
	j.jobs[name] = jobInfo
	if enabled {
		j.scheduler.Cron(cronStr).Do(func() {
			j.RunJob(name)
		})
	}
}

// RunJob runs a registered job by name and records the outcome, so ad-hoc
// runs through the api surface the same way as scheduled ones.
func (j *JobManager) RunJob(name string) error {
	job, ok := j.jobs[name]
	if !ok {
		return fmt.Errorf("no job registered with name %q", name)
	}
	start := time.Now()
	log.Printf("Starting job %q", job.name)
	defer func(job jobInfo) {
		if r := recover(); r != nil {
			metrics.JobRunInc(job.name, "panic")
			log.Printf("Job %q panicked: %v \n stacktrace: %v", job.name, r, string(debug.Stack()))
		}
	}(job)
	err := job.job()
	duration := time.Since(start)
	if err != nil {
		metrics.JobRunInc(job.name, "failure")
		log.Printf("Job %q failed after %v ms: %v", job.name, duration.Milliseconds(), err)
		return err
	}
	metrics.JobRunInc(job.name, "success")
	log.Printf("Job %q completed successfully after %v ms", job.name, duration.Milliseconds())
	return nil
}

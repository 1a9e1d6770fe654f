package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mbroe/fotostrom/config"
	"github.com/mbroe/fotostrom/db"
	"github.com/mbroe/fotostrom/jobs"
	"github.com/mbroe/fotostrom/photos"
	"github.com/mbroe/fotostrom/pkg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dbConn, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("error opening db: %v", err)
	}
	err = db.Migrate("up", dbConn)
	if err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	taskQueue := jobs.NewTaskQueue(4, 256, 3)
	defer taskQueue.Stop()

	appContext := &pkg.AppContext{
		Config:     cfg,
		JobManager: jobs.NewJobManager(),
		TaskQueue:  taskQueue,
	}

	photoRepository := photos.NewPhotoRepository(appContext)
	photoSearch := photos.NewPhotoSearch(cfg.SearchIndexPath)
	feedClient := photos.NewFeedClient(photos.FetchOptions{Timeout: cfg.FeedFetchTimeout})
	photoService := photos.NewPhotoService(appContext, photoRepository, photoRepository, photoRepository, feedClient, photoSearch)
	refreshScheduler := photos.NewRefreshScheduler(photoRepository, taskQueue, photoService)

	indexCreated, err := photoSearch.OpenAndCreateIndexIfNotExists()
	if err != nil {
		log.Fatalf("failed to open/create search index: %v", err)
	}
	defer photoSearch.CloseIndex()
	if indexCreated {
		go photoService.AddMissingPhotosToSearchIndexAndLogError(context.Background())
	}

	go func() {
		err := photoService.RefreshMetrics(context.Background())
		if err != nil {
			log.Printf("error refreshing metrics: %v", err)
		}
	}()

	defer appContext.JobManager.Stop()
	appContext.JobManager.Cron("0 * * * *", photos.JobIdentifierRefresh, func() error {
		job := photos.NewRefreshJob(refreshScheduler)
		return job.ExecuteJob()
	}, true)
	appContext.JobManager.Cron("30 3 * * *", photos.JobIdentifierBackup, func() error {
		return photoService.BackupDbAndLogError(context.Background())
	}, cfg.BackupDbPath != "")
	appContext.JobManager.Cron("45 4 * * 0", photos.JobIdentifierReindex, func() error {
		photoService.AddMissingPhotosToSearchIndexAndLogError(context.Background())
		return nil
	}, true)
	go appContext.JobManager.Start()

	runMetricsServer(cfg.MetricsPort)

	httpHandlers := photos.NewHttpHandlers(appContext, photoService)

	r := ginRouter(cfg)
	r.GET("/api/search", httpHandlers.HandleSearch)
	r.GET("/api/photos", httpHandlers.HandlePhotos)
	r.GET("/api/photos/:id", httpHandlers.HandlePhoto)
	r.GET("/api/sources", httpHandlers.HandleSources)
	r.POST("/api/job", httpHandlers.RunJob(cfg.JobKey))
	r.POST("/api/backup-db", httpHandlers.BackupDb(cfg.JobKey))

	log.Printf("Listening on http://localhost:%v", cfg.Port)
	r.Run(fmt.Sprintf(":%v", cfg.Port))
}

func ginRouter(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == config.AppEnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.Default())
	r.SetTrustedProxies(nil)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	return r
}

func runMetricsServer(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		http.ListenAndServe(fmt.Sprintf(":%v", port), mux)
	}()
}

package photos

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mbroe/fotostrom/pkg"
)

type HttpHandlers struct {
	context *pkg.AppContext
	service *PhotoService
}

func NewHttpHandlers(context *pkg.AppContext, service *PhotoService) *HttpHandlers {
	return &HttpHandlers{
		context: context,
		service: service,
	}
}

func intQuery(c *gin.Context, query string, defaultVal int) int {
	valStr := c.DefaultQuery(query, fmt.Sprintf("%v", defaultVal))
	val, err := strconv.Atoi(valStr)
	if err != nil {
		val = defaultVal
	}
	return val
}

func (h *HttpHandlers) HandleSearch(c *gin.Context) {
	query := c.Query("q")
	searchDescription := c.Query("description") == "true"
	offset := intQuery(c, "offset", 0)
	limit := intQuery(c, "limit", 50)
	if limit > 100 {
		limit = 100
	}
	orderBy := c.DefaultQuery("orderBy", "-takenAt")
	items, err := h.service.SearchPhotos(c.Request.Context(), query, searchDescription, offset, limit, orderBy)
	if err != nil {
		log.Printf("failed to search photos with query %v: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *HttpHandlers) HandlePhotos(c *gin.Context) {
	offset := intQuery(c, "offset", 0)
	limit := intQuery(c, "limit", 50)
	if limit > 100 {
		limit = 100
	}
	photos, err := h.service.GetRecentPhotos(c.Request.Context(), limit, offset)
	if err != nil {
		log.Printf("failed to get recent photos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get photos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

func (h *HttpHandlers) HandlePhoto(c *gin.Context) {
	id := c.Param("id")
	photo, err := h.service.GetPhoto(c.Request.Context(), id)
	if err != nil {
		log.Printf("failed to get photo %v: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get photo"})
		return
	}
	if photo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}
	c.JSON(http.StatusOK, photo)
}

func (h *HttpHandlers) HandleSources(c *gin.Context) {
	sources, err := h.service.GetSources(c.Request.Context())
	if err != nil {
		log.Printf("failed to get sources: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get sources"})
		return
	}
	c.JSON(http.StatusOK, sources)
}

func (h *HttpHandlers) RunJob(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != key {
			c.AbortWithStatus(401)
			return
		}
		fireAndForget := c.Query("fireAndForget") == "true"
		if fireAndForget {
			go h.context.JobManager.RunJob(JobIdentifierRefresh)
		} else {
			if err := h.context.JobManager.RunJob(JobIdentifierRefresh); err != nil {
				c.String(http.StatusInternalServerError, "job failed: %v", err)
				return
			}
		}
		c.Status(http.StatusOK)
	}
}

func (h *HttpHandlers) BackupDb(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != key {
			c.AbortWithStatus(401)
			return
		}
		fireAndForget := c.Query("fireAndForget") == "true"
		if fireAndForget {
			go h.service.BackupDbAndLogError(context.Background())
		} else {
			err := h.service.BackupDb(c.Request.Context())
			if err != nil {
				c.String(http.StatusInternalServerError, "backup failed: %v", err)
				return
			}
			log.Printf("backup success")
		}
		c.Status(http.StatusOK)
	}
}

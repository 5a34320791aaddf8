package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/queue"
	"github.com/dianabombi/student-advisor-sub002/internal/store"
	"github.com/dianabombi/student-advisor-sub002/utils"
)

func SetupScrapeRoutes(router *gin.Engine, svc *queue.Service) {
	group := router.Group("/scrape")

	// Kick off (or coalesce into) a scrape job for the institution's website.
	group.POST("/:institution_id", func(c *gin.Context) {
		institutionID, err := primitive.ObjectIDFromHex(c.Param("institution_id"))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_institution_id",
				"Invalid institution ID format", nil)
			return
		}

		job, err := svc.EnqueueScrape(c.Request.Context(), institutionID)
		if err != nil {
			switch err {
			case store.ErrNotFound:
				utils.RespondWithNotFound(c, "Institution not found")
			case store.ErrNoWebsite:
				utils.RespondWithError(c, http.StatusUnprocessableEntity, "no_website",
					"Institution has no website to scrape", nil)
			default:
				utils.RespondWithInternalError(c, "Failed to enqueue scrape job", nil)
			}
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"job_id": job.ID.Hex(),
			"status": job.Status,
		})
	})

	group.GET("/:institution_id/status", func(c *gin.Context) {
		institutionID, err := primitive.ObjectIDFromHex(c.Param("institution_id"))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_institution_id",
				"Invalid institution ID format", nil)
			return
		}

		status, err := svc.Status(c.Request.Context(), institutionID)
		if err != nil {
			if err == store.ErrNotFound {
				utils.RespondWithNotFound(c, "Institution not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load scrape status", nil)
			return
		}

		c.JSON(http.StatusOK, status)
	})
}

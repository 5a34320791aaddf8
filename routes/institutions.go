package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dianabombi/student-advisor-sub002/internal/store"
	"github.com/dianabombi/student-advisor-sub002/models"
	"github.com/dianabombi/student-advisor-sub002/utils"
)

func SetupInstitutionRoutes(router *gin.Engine, st *store.Store) {
	group := router.Group("/institutions")

	group.POST("", func(c *gin.Context) {
		var req models.CreateInstitutionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		inst, err := st.Institutions.Create(c.Request.Context(), models.Institution{
			Name:     req.Name,
			Website:  req.Website,
			Country:  req.Country,
			Category: req.Category,
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				utils.RespondWithConflict(c, "An institution with this name already exists", nil)
				return
			}
			utils.RespondWithInternalError(c, "Failed to create institution", nil)
			return
		}

		c.JSON(http.StatusCreated, inst)
	})

	group.GET("", func(c *gin.Context) {
		institutions, err := st.Institutions.List(c.Request.Context(), 200)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list institutions", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"institutions": institutions, "count": len(institutions)})
	})

	group.GET("/:id", func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_institution_id",
				"Invalid institution ID format", nil)
			return
		}

		inst, err := st.Institutions.ByID(c.Request.Context(), id)
		if err != nil {
			if err == store.ErrNotFound {
				utils.RespondWithNotFound(c, "Institution not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load institution", nil)
			return
		}

		c.JSON(http.StatusOK, inst)
	})
}

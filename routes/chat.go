package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/chat"
	"github.com/dianabombi/student-advisor-sub002/internal/store"
	"github.com/dianabombi/student-advisor-sub002/internal/telemetry"
	"github.com/dianabombi/student-advisor-sub002/models"
	"github.com/dianabombi/student-advisor-sub002/utils"
)

func SetupChatRoutes(router *gin.Engine, orchestrator *chat.Orchestrator, st *store.Store, metrics *telemetry.Metrics) {
	group := router.Group("/chat")

	group.POST("/send", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		institutionID, err := primitive.ObjectIDFromHex(req.InstitutionID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_institution_id",
				"Invalid institution ID format", nil)
			return
		}

		if _, err := st.Institutions.ByID(c.Request.Context(), institutionID); err != nil {
			if err == store.ErrNotFound {
				utils.RespondWithNotFound(c, "Institution not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load institution", nil)
			return
		}

		answer, err := orchestrator.Answer(c.Request.Context(), institutionID, req.Message, req.History, req.Language)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to process chat message", nil)
			return
		}

		if metrics != nil {
			metrics.RecordChatTurn(req.InstitutionID, answer.Success, answer.Grounded)
			metrics.RecordTokensUsed(int64(answer.TokensUsed), "gemini")
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Reply:      answer.Text,
			Grounded:   answer.Grounded,
			TokensUsed: answer.TokensUsed,
			LatencyMs:  int(answer.Latency.Milliseconds()),
			Timestamp:  time.Now().UTC(),
		})
	})
}

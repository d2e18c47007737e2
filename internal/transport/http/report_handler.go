package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skill-quiz-service/internal/app"
)

func (h *Handler) userOverview(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	res, err := h.svc.Reports.UserOverview(c.Request.Context(), actorFrom(c), userID)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) userSkillAccuracy(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	minAttempts := int64(queryInt(c, "minAttempts", 0))
	res, err := h.svc.Reports.UserSkillAccuracy(c.Request.Context(), actorFrom(c), userID, minAttempts)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) timeTrend(c *gin.Context) {
	skillID, ok := queryID(c, "skillId")
	if !ok {
		return
	}
	res, err := h.svc.Reports.TimeTrend(c.Request.Context(), app.TrendRequest{
		Period:  c.Query("period"),
		Start:   c.Query("start"),
		End:     c.Query("end"),
		GroupBy: c.Query("groupBy"),
		SkillID: skillID,
	})
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) groupOverview(c *gin.Context) {
	res, err := h.svc.Reports.GroupOverview(c.Request.Context(), app.GroupRequest{
		Page:    queryInt(c, "page", 1),
		Limit:   queryInt(c, "limit", 0),
		OrderBy: c.Query("orderBy"),
		Dir:     c.Query("dir"),
	})
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) skillLeaderboard(c *gin.Context) {
	skillID, ok := idParam(c, "skillId")
	if !ok {
		return
	}
	res, err := h.svc.Reports.SkillLeaderboard(c.Request.Context(), skillID,
		int64(queryInt(c, "minAnswers", 0)), queryInt(c, "limit", 0))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skillId": skillID, "items": res})
}

func (h *Handler) skillGaps(c *gin.Context) {
	res, err := h.svc.Reports.SkillGaps(c.Request.Context(),
		int64(queryInt(c, "minAnswers", 0)), queryInt(c, "limit", 0))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

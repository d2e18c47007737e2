package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

func (h *Handler) listSkills(c *gin.Context) {
	skills, err := h.svc.Catalog.ListSkills(c.Request.Context())
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, skills)
}

func (h *Handler) getSkill(c *gin.Context) {
	id, ok := idParam(c, "skillId")
	if !ok {
		return
	}
	skill, err := h.svc.Catalog.GetSkill(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

func (h *Handler) createSkill(c *gin.Context) {
	var in domain.SkillInput
	if !bindJSON(c, &in) {
		return
	}
	skill, err := h.svc.Catalog.CreateSkill(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, skill)
}

func (h *Handler) updateSkill(c *gin.Context) {
	id, ok := idParam(c, "skillId")
	if !ok {
		return
	}
	var patch domain.SkillPatch
	if !bindJSON(c, &patch) {
		return
	}
	skill, err := h.svc.Catalog.UpdateSkill(c.Request.Context(), id, patch)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

func (h *Handler) deleteSkill(c *gin.Context) {
	id, ok := idParam(c, "skillId")
	if !ok {
		return
	}
	res, err := h.svc.Catalog.DeleteSkill(c.Request.Context(), id, queryBool(c, "force"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Skill deleted", "id": res.ID, "deletedQuestions": res.DeletedQuestions})
}

func (h *Handler) listQuizzes(c *gin.Context) {
	skillID, ok := idParam(c, "skillId")
	if !ok {
		return
	}
	quizzes, err := h.svc.Catalog.ListQuizzes(c.Request.Context(), skillID, !actorFrom(c).IsAdmin())
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) createQuiz(c *gin.Context) {
	skillID, ok := idParam(c, "skillId")
	if !ok {
		return
	}
	var in domain.QuizInput
	if !bindJSON(c, &in) {
		return
	}
	quiz, err := h.svc.Catalog.CreateQuiz(c.Request.Context(), skillID, in)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) getQuiz(c *gin.Context) {
	quizID, ok := idParam(c, "quizId")
	if !ok {
		return
	}
	actor := actorFrom(c)
	view, err := h.svc.Catalog.GetQuizView(c.Request.Context(), quizID, actor.IsAdmin())
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": view.Quiz, "questions": questionsFor(actor, view.Questions)})
}

func (h *Handler) updateQuiz(c *gin.Context) {
	quizID, ok := idParam(c, "quizId")
	if !ok {
		return
	}
	var patch domain.QuizPatch
	if !bindJSON(c, &patch) {
		return
	}
	quiz, err := h.svc.Catalog.UpdateQuiz(c.Request.Context(), quizID, patch)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) deleteQuiz(c *gin.Context) {
	quizID, ok := idParam(c, "quizId")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteQuiz(c.Request.Context(), quizID); err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted"})
}

type questionPage struct {
	SkillID    *int64 `json:"skillId,omitempty"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"totalPages"`
	Items      any    `json:"items"`
}

func (h *Handler) writeQuestionPage(c *gin.Context, q app.QuestionQuery, skillID *int64) {
	page, err := h.svc.Catalog.ListQuestions(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questionPage{
		SkillID:    skillID,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Items:      questionsFor(actorFrom(c), page.Items),
	})
}

func (h *Handler) listQuestions(c *gin.Context) {
	skillID, ok := queryID(c, "skillId")
	if !ok {
		return
	}
	quizID, ok := queryID(c, "quizId")
	if !ok {
		return
	}
	h.writeQuestionPage(c, app.QuestionQuery{
		Page:    queryInt(c, "page", 1),
		Limit:   queryInt(c, "limit", 0),
		Sort:    c.Query("sort"),
		Dir:     c.Query("dir"),
		Search:  c.Query("q"),
		SkillID: skillID,
		QuizID:  quizID,

		PublishedOnly: !actorFrom(c).IsAdmin(),
	}, nil)
}

func (h *Handler) listQuestionsBySkill(c *gin.Context) {
	skillID, ok := idParam(c, "skillId")
	if !ok {
		return
	}
	h.writeQuestionPage(c, app.QuestionQuery{
		Page:    queryInt(c, "page", 1),
		Limit:   queryInt(c, "limit", 0),
		SkillID: &skillID,
		Shuffle: queryBool(c, "shuffle"),

		PublishedOnly: !actorFrom(c).IsAdmin(),
	}, &skillID)
}

func (h *Handler) createQuestion(c *gin.Context) {
	var in domain.QuestionInput
	if !bindJSON(c, &in) {
		return
	}
	q, err := h.svc.Catalog.CreateQuestion(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *Handler) updateQuestion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch domain.QuestionPatch
	if !bindJSON(c, &patch) {
		return
	}
	q, err := h.svc.Catalog.UpdateQuestion(c.Request.Context(), id, patch)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *Handler) deleteQuestion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteQuestion(c.Request.Context(), id); err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted"})
}

func (h *Handler) bulkDeleteQuestions(c *gin.Context) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if !bindJSON(c, &body) {
		return
	}
	deleted, err := h.svc.Catalog.BulkDeleteQuestions(c.Request.Context(), body.IDs)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Questions deleted", "deleted": deleted})
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

// submitter resolves the user a submission is recorded for. It defaults to the
// caller; only admins may submit on behalf of someone else.
func submitter(c *gin.Context, requested int64) (int64, bool) {
	actor := actorFrom(c)
	if requested == 0 {
		return actor.UserID, true
	}
	if !actor.CanAccess(requested) {
		abortWithMessage(c, http.StatusForbidden, "Forbidden")
		return 0, false
	}
	return requested, true
}

func (h *Handler) submitQuiz(c *gin.Context) {
	var req domain.SubmitQuizRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := submitter(c, req.UserID)
	if !ok {
		return
	}
	req.UserID = userID
	req.PublishedOnly = !actorFrom(c).IsAdmin()
	res, err := h.svc.Scoring.SubmitQuiz(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) startQuiz(c *gin.Context) {
	var req domain.FreeFormRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := submitter(c, req.UserID)
	if !ok {
		return
	}
	req.UserID = userID
	req.PublishedOnly = !actorFrom(c).IsAdmin()
	res, err := h.svc.Scoring.SubmitFreeForm(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) listAttempts(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	if !actorFrom(c).CanAccess(userID) {
		abortWithMessage(c, http.StatusForbidden, "Forbidden")
		return
	}
	quizID, ok := queryID(c, "quizId")
	if !ok {
		return
	}
	history, err := h.svc.Attempts.ListAttempts(c.Request.Context(), domain.AttemptQuery{
		UserID:      userID,
		QuizID:      quizID,
		Page:        queryInt(c, "page", 1),
		Limit:       queryInt(c, "limit", 0),
		WithAnswers: queryBool(c, "withAnswers"),
	})
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// learnerQuestion is a question without its answer key.
type learnerQuestion struct {
	ID           int64    `json:"id"`
	QuizID       int64    `json:"quiz_id"`
	SkillID      *int64   `json:"skill_id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
}

func hideAnswers(questions []domain.Question) []learnerQuestion {
	out := make([]learnerQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, learnerQuestion{
			ID:           q.ID,
			QuizID:       q.QuizID,
			SkillID:      q.SkillID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Points:       q.Points,
		})
	}
	return out
}

// questionsFor returns questions as the caller may see them.
func questionsFor(actor app.Actor, questions []domain.Question) any {
	if actor.IsAdmin() {
		if questions == nil {
			return []domain.Question{}
		}
		return questions
	}
	return hideAnswers(questions)
}

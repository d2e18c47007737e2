package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
	"skill-quiz-service/internal/metrics"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Scoring  *app.ScoringService
	Attempts *app.AttemptService
	Catalog  *app.CatalogService
	Users    *app.UserService
	Reports  *app.ReportService
	Feed     *app.AttemptFeed
}

// Options configures the router's middleware chain.
type Options struct {
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Tokens      TokenParser
	CORSOrigins []string
	RateLimit   int
	RateWindow  time.Duration
}

// Handler serves the REST API.
type Handler struct {
	svc Services
	log *zap.Logger
}

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(svc Services, opts Options) *gin.Engine {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	useJSONFieldNames()

	h := &Handler{svc: svc, log: opts.Log}
	r := gin.New()
	r.Use(RequestID(), Recovery(opts.Log), AccessLog(opts.Log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	r.Use(SecureHeaders(), CORS(opts.CORSOrigins))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api", RateLimiter(opts.RateLimit, opts.RateWindow))
	authed := Authenticate(opts.Tokens)
	admin := RequireRole(domain.RoleAdmin)

	authGroup := api.Group("/auth")
	authGroup.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)

	quiz := api.Group("/quiz", authed)
	quiz.POST("/submit", h.submitQuiz)
	quiz.POST("/start", h.startQuiz)
	quiz.GET("/attempts/:userId", h.listAttempts)

	skills := api.Group("/skills", authed)
	skills.GET("", h.listSkills)
	skills.POST("", admin, h.createSkill)
	skills.GET("/:skillId", h.getSkill)
	skills.PUT("/:skillId", admin, h.updateSkill)
	skills.DELETE("/:skillId", admin, h.deleteSkill)
	skills.GET("/:skillId/quizzes", h.listQuizzes)
	skills.POST("/:skillId/quizzes", admin, h.createQuiz)

	quizzes := api.Group("/quizzes", authed)
	quizzes.GET("/:quizId", h.getQuiz)
	quizzes.PUT("/:quizId", admin, h.updateQuiz)
	quizzes.DELETE("/:quizId", admin, h.deleteQuiz)

	questions := api.Group("/questions", authed)
	questions.GET("", h.listQuestions)
	questions.GET("/skill/:skillId", h.listQuestionsBySkill)
	questions.POST("", admin, h.createQuestion)
	questions.PUT("/:id", admin, h.updateQuestion)
	questions.DELETE("/:id", admin, h.deleteQuestion)
	questions.DELETE("", admin, h.bulkDeleteQuestions)

	users := api.Group("/users", authed)
	users.GET("", admin, h.listUsers)
	users.GET("/:id", h.getUser)
	users.PUT("/:id", h.updateUser)
	users.DELETE("/:id", admin, h.deleteUser)

	reports := api.Group("/reports", authed)
	reports.GET("/user/:userId", h.userOverview)
	reports.GET("/user/:userId/skills", h.userSkillAccuracy)
	reports.GET("/time", admin, h.timeTrend)
	reports.GET("/group", admin, h.groupOverview)
	reports.GET("/skills/gaps", admin, h.skillGaps)
	reports.GET("/skill/:skillId/leaderboard", admin, h.skillLeaderboard)

	if svc.Feed != nil {
		ws := NewWSHandler(svc.Feed, opts.Log)
		r.GET("/ws/attempts", authed, admin, ws.Serve)
	}
	return r
}

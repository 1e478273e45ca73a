package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/quizdesk/quizdesk-backend/internal/handler"
	"github.com/quizdesk/quizdesk-backend/internal/middleware"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz       *handler.QuizHandler
	Submission *handler.SubmissionHandler
	Grading    *handler.GradingHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for quiz submissions.
	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute)

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.GET("/quizzes/:quiz_id", handlers.Submission.GetQuizPayload)
		studentAPI.POST("/quizzes/:quiz_id/submit",
			submitLimiter.Middleware(),
			handlers.Submission.SubmitQuiz,
		)
		studentAPI.GET("/quizzes/:quiz_id/result", handlers.Submission.GetMyQuizResult)
		studentAPI.GET("/submissions", handlers.Submission.ListMySubmissions)
		studentAPI.GET("/submissions/:submission_id", handlers.Submission.GetMySubmission)
	}

	// ─── 2. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Quiz authoring & lifecycle
		teacherAPI.GET("/quizzes", handlers.Quiz.ListQuizzes)
		teacherAPI.POST("/quizzes", handlers.Quiz.CreateQuiz)
		teacherAPI.GET("/quizzes/:quiz_id", handlers.Quiz.GetQuiz)
		teacherAPI.PUT("/quizzes/:quiz_id", handlers.Quiz.UpdateQuiz)
		teacherAPI.POST("/quizzes/:quiz_id/open", handlers.Quiz.OpenQuiz)
		teacherAPI.POST("/quizzes/:quiz_id/close", handlers.Quiz.CloseQuiz)
		teacherAPI.GET("/quizzes/:quiz_id/submissions", handlers.Grading.ListQuizSubmissions)

		// Grading workflow
		teacherAPI.GET("/grading/overview", handlers.Grading.Overview)
		teacherAPI.GET("/grading/pending", handlers.Grading.ListPending)
		teacherAPI.GET("/grading/submissions/:submission_id", handlers.Grading.GetDetail)
		teacherAPI.POST("/grading/submissions/:submission_id/grade", handlers.Grading.GradeEssay)
		teacherAPI.POST("/grading/submissions/:submission_id/grade-batch", handlers.Grading.GradeBatch)
		teacherAPI.POST("/grading/submissions/:submission_id/rederive", handlers.Grading.RederiveSubmission)
		teacherAPI.GET("/grading/quizzes/:quiz_id/stats", handlers.Grading.QuizStats)
	}

	// ─── 3. WebSocket Group (Teacher WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireTeacherWSAuth(authService))
	{
		ws.GET("/teacher/quizzes/:quiz_id/grading", handlers.WS.GradingProgressStream)
	}

	return router
}

package controller

import (
	"net/http"
	"time"

	"examhall/internal/exam/middleware"
	"examhall/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controllers bundles the handlers the router mounts.
type Controllers struct {
	Exam        *ExamController
	Submission  *SubmissionController
	Leaderboard *LeaderboardController
	Integrity   *IntegrityController
}

// NewRouter builds the gin engine with the full API surface mounted under
// /api/v1. All exam reads are pull-based polling endpoints.
func NewRouter(ctrl Controllers, cors middleware.CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.CORSMiddleware(cors))
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	v1 := router.Group("/api/v1")
	{
		exams := v1.Group("/exams")
		exams.POST("", ctrl.Exam.Create)
		exams.GET("/:code", ctrl.Exam.Get)
		exams.POST("/:code/problem", ctrl.Exam.UploadProblem)
		exams.POST("/:code/join", ctrl.Exam.Join)
		exams.POST("/:code/start", ctrl.Exam.Start)
		exams.POST("/:code/stop", ctrl.Exam.Stop)

		exams.POST("/:code/submissions", ctrl.Submission.Submit)
		exams.GET("/:code/leaderboard", ctrl.Leaderboard.Get)

		integrity := exams.Group("/:code/integrity")
		integrity.GET("/policy", ctrl.Integrity.Policy)
		integrity.GET("/:name", ctrl.Integrity.State)
		integrity.POST("/:name/readiness", ctrl.Integrity.SetReadiness)
		integrity.POST("/:name/vm-check", ctrl.Integrity.VMCheck)
		integrity.POST("/:name/violations", ctrl.Integrity.ReportViolation)
		integrity.POST("/:name/devtools-closed", ctrl.Integrity.DevtoolsClosed)
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

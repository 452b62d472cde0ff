package controller

import (
	"examhall/internal/exam/model"
	"examhall/internal/exam/service"
	"examhall/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmissionController handles the one-shot submit endpoint.
type SubmissionController struct {
	scoring *service.ScoringService
}

// NewSubmissionController creates a new SubmissionController.
func NewSubmissionController(scoring *service.ScoringService) *SubmissionController {
	return &SubmissionController{scoring: scoring}
}

// Submit grades the participant's code. A repeated submit for the same
// participant returns the original result unchanged.
func (h *SubmissionController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	submission, err := h.scoring.Submit(c.Request.Context(), service.SubmitInput{
		ExamCode:        c.Param("code"),
		ParticipantName: req.Name,
		Language:        req.Language,
		SourceCode:      req.SourceCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newSubmitResponse(submission))
}

// SubmitRequest defines the submit payload.
type SubmitRequest struct {
	Name       string `json:"name" binding:"required"`
	Language   string `json:"language" binding:"required"`
	SourceCode string `json:"source_code" binding:"required"`
}

// SubmitResponse defines the graded result payload.
type SubmitResponse struct {
	SubmissionID string             `json:"submission_id"`
	Score        int                `json:"score"`
	PointsEarned int                `json:"points_earned"`
	SubmittedAt  int64              `json:"submitted_at"`
	TestResults  []model.TestResult `json:"test_results"`
}

func newSubmitResponse(s *model.Submission) SubmitResponse {
	return SubmitResponse{
		SubmissionID: s.ID,
		Score:        s.Score,
		PointsEarned: s.PointsEarned,
		SubmittedAt:  s.SubmittedAt.Unix(),
		TestResults:  s.TestResults,
	}
}

package controller

import (
	"examhall/internal/exam/model"
	"examhall/internal/exam/service"
	"examhall/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ExamController handles exam lifecycle HTTP endpoints.
type ExamController struct {
	lifecycle *service.LifecycleService
}

// NewExamController creates a new ExamController.
func NewExamController(lifecycle *service.LifecycleService) *ExamController {
	return &ExamController{lifecycle: lifecycle}
}

// Create registers a new exam and returns its join code.
func (h *ExamController) Create(c *gin.Context) {
	var req CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	exam, err := h.lifecycle.Create(c.Request.Context(), service.CreateExamInput{
		Title:           req.Title,
		HostName:        req.HostName,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newExamView(exam, false))
}

// UploadProblem attaches the problem to a waiting exam.
func (h *ExamController) UploadProblem(c *gin.Context) {
	var req UploadProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	problem := &model.Problem{
		Title:        req.Title,
		Description:  req.Description,
		FunctionName: req.FunctionName,
		Languages:    req.Languages,
		StarterCode:  req.StarterCode,
		TotalPoints:  req.TotalPoints,
	}
	for _, tc := range req.TestCases {
		problem.TestCases = append(problem.TestCases, model.TestCase{
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			Description:    tc.Description,
			IsPublic:       tc.IsPublic,
			Points:         tc.Points,
		})
	}
	warning, err := h.lifecycle.UploadProblem(c.Request.Context(), c.Param("code"), problem)
	if err != nil {
		response.Error(c, err)
		return
	}
	if warning != "" {
		response.SuccessWithWarning(c, gin.H{"attached": true}, warning)
		return
	}
	response.Success(c, gin.H{"attached": true})
}

// Join admits a participant into a waiting exam.
func (h *ExamController) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	participant, err := h.lifecycle.Join(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, JoinResponse{
		Name:     participant.Name,
		JoinedAt: participant.JoinedAt.Unix(),
	})
}

// Start moves the exam from waiting to active and fixes the end time.
func (h *ExamController) Start(c *gin.Context) {
	exam, err := h.lifecycle.Start(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newExamView(exam, false))
}

// Stop ends the exam early. Idempotent.
func (h *ExamController) Stop(c *gin.Context) {
	if err := h.lifecycle.Stop(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"stopped": true})
}

// Get returns the exam state. Participants see the problem with private test
// case data redacted; `?view=host` returns the full problem.
func (h *ExamController) Get(c *gin.Context) {
	exam, err := h.lifecycle.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	hostView := c.Query("view") == "host"
	response.Success(c, newExamView(exam, hostView))
}

// CreateExamRequest defines the create payload.
type CreateExamRequest struct {
	Title           string `json:"title" binding:"required"`
	HostName        string `json:"host_name" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
	MaxParticipants int    `json:"max_participants" binding:"required"`
}

// UploadProblemRequest defines the problem upload payload.
type UploadProblemRequest struct {
	Title        string            `json:"title" binding:"required"`
	Description  string            `json:"description"`
	FunctionName string            `json:"function_name"`
	Languages    []string          `json:"languages"`
	StarterCode  map[string]string `json:"starter_code"`
	TestCases    []TestCaseRequest `json:"test_cases" binding:"required"`
	TotalPoints  int               `json:"total_points"`
}

// TestCaseRequest defines one uploaded test case.
type TestCaseRequest struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Description    string `json:"description"`
	IsPublic       bool   `json:"is_public"`
	Points         int    `json:"points"`
}

// JoinRequest defines the join payload.
type JoinRequest struct {
	Name string `json:"name" binding:"required"`
}

// JoinResponse defines the join response payload.
type JoinResponse struct {
	Name     string `json:"name"`
	JoinedAt int64  `json:"joined_at"`
}

// ExamView is the exam state returned to pollers.
type ExamView struct {
	Code             string         `json:"code"`
	Title            string         `json:"title"`
	HostName         string         `json:"host_name"`
	Status           string         `json:"status"`
	DurationMinutes  int            `json:"duration_minutes"`
	MaxParticipants  int            `json:"max_participants"`
	ParticipantCount int            `json:"participant_count"`
	StartTime        *int64         `json:"start_time,omitempty"`
	EndTime          *int64         `json:"end_time,omitempty"`
	Problem          *model.Problem `json:"problem,omitempty"`
}

func newExamView(exam *model.Exam, hostView bool) ExamView {
	view := ExamView{
		Code:             exam.Code,
		Title:            exam.Title,
		HostName:         exam.HostName,
		Status:           string(exam.Status),
		DurationMinutes:  exam.DurationMinutes,
		MaxParticipants:  exam.MaxParticipants,
		ParticipantCount: len(exam.Participants),
	}
	if exam.StartTime != nil {
		ts := exam.StartTime.Unix()
		view.StartTime = &ts
	}
	if exam.EndTime != nil {
		ts := exam.EndTime.Unix()
		view.EndTime = &ts
	}
	if exam.Problem != nil {
		if hostView {
			view.Problem = exam.Problem
		} else {
			view.Problem = exam.Problem.PublicView()
		}
	}
	return view
}

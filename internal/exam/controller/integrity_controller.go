package controller

import (
	"examhall/internal/exam/model"
	"examhall/internal/exam/service"
	"examhall/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// IntegrityController handles proctoring telemetry endpoints.
type IntegrityController struct {
	integrity *service.IntegrityService
}

// NewIntegrityController creates a new IntegrityController.
func NewIntegrityController(integrity *service.IntegrityService) *IntegrityController {
	return &IntegrityController{integrity: integrity}
}

// SetReadiness latches the checks a client reports as passed.
func (h *IntegrityController) SetReadiness(c *gin.Context) {
	var req service.ReadinessInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	state, err := h.integrity.SetReadiness(c.Request.Context(), c.Param("code"), c.Param("name"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newIntegrityView(state, nil))
}

// VMCheck records a client environment report and completes the VM latch flag.
func (h *IntegrityController) VMCheck(c *gin.Context) {
	var req service.VMCheckInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	state, err := h.integrity.ReportVMCheck(c.Request.Context(), c.Param("code"), c.Param("name"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newIntegrityView(state, nil))
}

// ReportViolation records one violation and returns the escalated state.
func (h *IntegrityController) ReportViolation(c *gin.Context) {
	var req ViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	state, err := h.integrity.ReportViolation(c.Request.Context(), c.Param("code"), c.Param("name"), service.ViolationInput{
		Kind:   model.ViolationKind(req.Kind),
		Detail: req.Detail,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newIntegrityView(state, nil))
}

// DevtoolsClosed clears the devtools-open flag.
func (h *IntegrityController) DevtoolsClosed(c *gin.Context) {
	state, err := h.integrity.DevtoolsClosed(c.Request.Context(), c.Param("code"), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newIntegrityView(state, nil))
}

// State returns the participant's integrity state and recent telemetry.
func (h *IntegrityController) State(c *gin.Context) {
	state, recent, err := h.integrity.State(c.Request.Context(), c.Param("code"), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newIntegrityView(state, recent))
}

// Policy returns the heuristic parameters exam clients should run with.
func (h *IntegrityController) Policy(c *gin.Context) {
	response.Success(c, h.integrity.Policy())
}

// ViolationRequest defines the violation report payload.
type ViolationRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Detail string `json:"detail"`
}

// IntegrityView is the integrity state returned to clients.
type IntegrityView struct {
	Ready               bool                  `json:"ready"`
	Latch               model.ReadinessLatch  `json:"latch"`
	AgreementAccepted   bool                  `json:"agreement_accepted"`
	FocusLostCount      int                   `json:"focus_lost_count"`
	FullscreenExitCount int                   `json:"fullscreen_exit_count"`
	DevtoolsDetected    bool                  `json:"devtools_detected"`
	VMSuspected         bool                  `json:"vm_suspected"`
	ViolationState      model.ViolationState  `json:"violation_state"`
	Violations          []model.Violation     `json:"violations,omitempty"`
	RecentTelemetry     []model.Violation     `json:"recent_telemetry,omitempty"`
}

func newIntegrityView(s *model.IntegrityState, recent []model.Violation) IntegrityView {
	return IntegrityView{
		Ready:               s.Ready(),
		Latch:               s.Latch,
		AgreementAccepted:   s.AgreementAccepted,
		FocusLostCount:      s.FocusLostCount,
		FullscreenExitCount: s.FullscreenExitCount,
		DevtoolsDetected:    s.DevtoolsDetected,
		VMSuspected:         s.VMSuspected,
		ViolationState:      s.ViolationState,
		Violations:          s.Violations,
		RecentTelemetry:     recent,
	}
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/export"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/service"
)

// defaultTemplateID is the requirements template used when the worker does
// not override it.
const defaultTemplateID = "irr_main"

// ReviewHandler handles review run endpoints.
type ReviewHandler struct {
	svc *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// submitToggles mirrors domain.Toggles with a pointer for apg_required so an
// omitted field keeps its default of true.
type submitToggles struct {
	TemplateOverride string `json:"template_override"`
	PGWaived         bool   `json:"pg_waived"`
	APGRequired      *bool  `json:"apg_required"`
}

type submitRequest struct {
	TemplateID string                     `json:"template_id"`
	Toggles    submitToggles              `json:"toggles"`
	Elements   []domain.Element           `json:"elements" binding:"required"`
	Clauses    []domain.ClauseRequirement `json:"clauses" binding:"required"`
	Fields     domain.POFields            `json:"fields"`
}

// Submit handles POST /api/v1/reviews
func (h *ReviewHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("invalid request body: %v", err))
		return
	}

	toggles := domain.Toggles{
		TemplateOverride: req.Toggles.TemplateOverride,
		PGWaived:         req.Toggles.PGWaived,
		APGRequired:      true,
	}
	if req.Toggles.APGRequired != nil {
		toggles.APGRequired = *req.Toggles.APGRequired
	}

	templateID := req.TemplateID
	if templateID == "" {
		templateID = defaultTemplateID
	}
	if toggles.TemplateOverride != "" {
		templateID = toggles.TemplateOverride
	}

	run, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		TemplateID: templateID,
		Toggles:    toggles,
		Elements:   req.Elements,
		Clauses:    req.Clauses,
		Fields:     req.Fields,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, run)
}

// GetByID handles GET /api/v1/reviews/:id
func (h *ReviewHandler) GetByID(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// Verdicts handles GET /api/v1/reviews/:id/verdicts
func (h *ReviewHandler) Verdicts(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	verdicts, err := h.svc.ListVerdicts(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, verdicts)
}

// Export handles GET /api/v1/reviews/:id/export?format=csv|json|xlsx
func (h *ReviewHandler) Export(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")

	verdicts, err := h.svc.ListVerdicts(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="issues_%s.csv"`, id))
		err = export.WriteCSV(c.Writer, verdicts)
	case "json":
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="issues_%s.json"`, id))
		err = export.WriteJSON(c.Writer, verdicts)
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="issues_%s.xlsx"`, id))
		err = export.WriteXLSX(c.Writer, verdicts)
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be one of: csv, json, xlsx")
		return
	}
	if err != nil {
		// Headers may already be out; all we can do is log via HandleError's path.
		HandleError(c, err)
	}
}

// parseRunID parses the :id path parameter; on failure the error response is
// already written.
func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "run id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

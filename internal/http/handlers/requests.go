package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/http/response"
	"github.com/yungbote/housedesk-backend/internal/services"
)

type RequestHandler struct {
	requests services.RequestService
}

func NewRequestHandler(svc services.RequestService) *RequestHandler {
	return &RequestHandler{requests: svc}
}

// POST /api/requests
func (h *RequestHandler) Create(c *gin.Context) {
	var req struct {
		Category    string `json:"category" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		IsPaid      int    `json:"is_paid"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.requests.Create(c.Request.Context(), services.CreateRequestInput{
		Category:    req.Category,
		Title:       req.Title,
		Description: req.Description,
		IsPaid:      req.IsPaid,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

// GET /api/requests?status=&category=&skip=&limit=
func (h *RequestHandler) List(c *gin.Context) {
	skip, limit := page(c)
	items, total, err := h.requests.List(c.Request.Context(), services.ListRequestsInput{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, response.ListEnvelope{Items: items, Total: total, Skip: skip, Limit: limit})
}

// GET /api/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.requests.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// PATCH /api/requests/:id
// body: { "title": "...", "description": "..." }
func (h *RequestHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.requests.UpdateDetails(c.Request.Context(), id, req.Title, req.Description)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/requests/:id/status
// body: { "status": "accepted", "comment": "...", "expected_version": 3 }
func (h *RequestHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status          string `json:"status" binding:"required"`
		Comment         string `json:"comment"`
		ExpectedVersion *int   `json:"expected_version"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.requests.Transition(c.Request.Context(), id, services.TransitionRequestInput{
		Status:          req.Status,
		Comment:         req.Comment,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"request": res.Request, "entry": res.Entry})
}

// GET /api/requests/categories
func (h *RequestHandler) Categories(c *gin.Context) {
	response.RespondOK(c, gin.H{"items": requests.CategoryLabels()})
}

// GET /api/requests/statuses
func (h *RequestHandler) Statuses(c *gin.Context) {
	response.RespondOK(c, gin.H{"items": requests.StatusLabels()})
}

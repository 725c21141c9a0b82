package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/housedesk-backend/internal/http/response"
	"github.com/yungbote/housedesk-backend/internal/services"
)

// SuperAdminHandler serves /api/superadmin. Every route sits behind
// RequireRole(super_admin); the services check the role again.
type SuperAdminHandler struct {
	directory services.DirectoryService
	requests  services.RequestService
}

func NewSuperAdminHandler(directory services.DirectoryService, requests services.RequestService) *SuperAdminHandler {
	return &SuperAdminHandler{directory: directory, requests: requests}
}

// optionalID parses a JSON id where "" means clear.
func optionalID(c *gin.Context, field string, raw *string) (id *uuid.UUID, clear bool, ok bool) {
	if raw == nil {
		return nil, false, true
	}
	if *raw == "" {
		return nil, true, true
	}
	parsed, err := uuid.Parse(*raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+field, err)
		return nil, false, false
	}
	return &parsed, false, true
}

type companyBody struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
}

func (b companyBody) input() services.CompanyInput {
	return services.CompanyInput{Name: b.Name, Phone: b.Phone, Email: b.Email, Address: b.Address, Description: b.Description}
}

type houseBody struct {
	CompanyID      *string `json:"company_id"`
	Address        *string `json:"address"`
	ApartmentCount *int    `json:"apartment_count"`
}

func (b houseBody) input(c *gin.Context) (services.HouseInput, bool) {
	in := services.HouseInput{Address: b.Address, ApartmentCount: b.ApartmentCount}
	id, _, ok := optionalID(c, "company_id", b.CompanyID)
	in.CompanyID = id
	return in, ok
}

// GET /api/superadmin/stats
func (h *SuperAdminHandler) Stats(c *gin.Context) {
	st, err := h.requests.Stats(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, st)
}

// POST /api/superadmin/requests/:id/cancel
// body: { "comment": "..." } (optional)
func (h *SuperAdminHandler) CancelRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	res, err := h.requests.CancelOverride(c.Request.Context(), id, req.Comment)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"request": res.Request, "entry": res.Entry})
}

// GET /api/superadmin/companies
func (h *SuperAdminHandler) ListCompanies(c *gin.Context) {
	skip, limit := page(c)
	items, total, err := h.directory.ListCompanies(c.Request.Context(), skip, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, response.ListEnvelope{Items: items, Total: total, Skip: skip, Limit: limit})
}

// POST /api/superadmin/companies
func (h *SuperAdminHandler) CreateCompany(c *gin.Context) {
	var body companyBody
	if !bindJSON(c, &body) {
		return
	}
	company, err := h.directory.CreateCompany(c.Request.Context(), body.input())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, company)
}

// PATCH /api/superadmin/companies/:id
func (h *SuperAdminHandler) UpdateCompany(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body companyBody
	if !bindJSON(c, &body) {
		return
	}
	company, err := h.directory.UpdateCompany(c.Request.Context(), id, body.input())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, company)
}

// DELETE /api/superadmin/companies/:id
func (h *SuperAdminHandler) DeleteCompany(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteCompany(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/superadmin/houses
func (h *SuperAdminHandler) CreateHouse(c *gin.Context) {
	var body houseBody
	if !bindJSON(c, &body) {
		return
	}
	in, ok := body.input(c)
	if !ok {
		return
	}
	house, err := h.directory.CreateHouse(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, house)
}

// PATCH /api/superadmin/houses/:id
func (h *SuperAdminHandler) UpdateHouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body houseBody
	if !bindJSON(c, &body) {
		return
	}
	in, ok := body.input(c)
	if !ok {
		return
	}
	house, err := h.directory.UpdateHouse(c.Request.Context(), id, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, house)
}

// DELETE /api/superadmin/houses/:id
func (h *SuperAdminHandler) DeleteHouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteHouse(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/superadmin/users?role=&company_id=&house_id=
func (h *SuperAdminHandler) ListUsers(c *gin.Context) {
	companyID, ok := queryUUID(c, "company_id")
	if !ok {
		return
	}
	houseID, ok := queryUUID(c, "house_id")
	if !ok {
		return
	}
	skip, limit := page(c)
	items, total, err := h.directory.ListUsers(c.Request.Context(), services.UserListInput{
		Role:      c.Query("role"),
		CompanyID: companyID,
		HouseID:   houseID,
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, response.ListEnvelope{Items: items, Total: total, Skip: skip, Limit: limit})
}

// PATCH /api/superadmin/users/:id
// body: { "role", "company_id", "house_id", "apartment", "password" }; "" ids clear the link.
func (h *SuperAdminHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Role      *string `json:"role"`
		CompanyID *string `json:"company_id"`
		HouseID   *string `json:"house_id"`
		Apartment *string `json:"apartment"`
		Password  *string `json:"password"`
	}
	if !bindJSON(c, &body) {
		return
	}
	in := services.UserUpdate{Role: body.Role, Apartment: body.Apartment, Password: body.Password}
	if in.CompanyID, in.ClearCompany, ok = optionalID(c, "company_id", body.CompanyID); !ok {
		return
	}
	if in.HouseID, in.ClearHouse, ok = optionalID(c, "house_id", body.HouseID); !ok {
		return
	}
	user, err := h.directory.UpdateUser(c.Request.Context(), id, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, user)
}

// DELETE /api/superadmin/users/:id
func (h *SuperAdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteUser(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

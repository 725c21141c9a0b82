package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/housedesk-backend/internal/http/response"
	"github.com/yungbote/housedesk-backend/internal/services"
)

type UserHandler struct {
	directory services.DirectoryService
}

func NewUserHandler(directory services.DirectoryService) *UserHandler {
	return &UserHandler{directory: directory}
}

// GET /api/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.directory.GetMe(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// PATCH /api/me
// body: { "first_name", "last_name", "phone", "house_id", "apartment" }; "house_id": "" clears the address.
func (uh *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Phone     *string `json:"phone"`
		HouseID   *string `json:"house_id"`
		Apartment *string `json:"apartment"`
	}
	if !bindJSON(c, &req) {
		return
	}
	in := services.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Apartment: req.Apartment,
	}
	if req.HouseID != nil {
		if *req.HouseID == "" {
			in.ClearHouse = true
		} else {
			id, err := uuid.Parse(*req.HouseID)
			if err != nil {
				response.RespondError(c, http.StatusBadRequest, "invalid_house_id", err)
				return
			}
			in.HouseID = &id
		}
	}
	me, err := uh.directory.UpdateMe(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// GET /api/houses?company_id=
func (uh *UserHandler) ListHouses(c *gin.Context) {
	companyID, ok := queryUUID(c, "company_id")
	if !ok {
		return
	}
	skip, limit := page(c)
	items, total, err := uh.directory.ListHouses(c.Request.Context(), companyID, skip, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, response.ListEnvelope{Items: items, Total: total, Skip: skip, Limit: limit})
}

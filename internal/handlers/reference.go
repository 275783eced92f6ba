package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/auth"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"gorm.io/gorm"
)

// ReferenceHandler is thin CRUD over the static reference data (locations
// and children) the ledger's foreign keys point at.
type ReferenceHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewReferenceHandler(db *gorm.DB, authHandler *auth.AuthHandler) *ReferenceHandler {
	return &ReferenceHandler{db: db, authHandler: authHandler}
}

type CreateLocationRequest struct {
	auth.AuthInput
	Body struct {
		Name    string `json:"name" required:"true"`
		Address string `json:"address,omitempty"`
	}
}

type LocationResponse struct {
	Body models.Location
}

func (h *ReferenceHandler) HandleCreateLocation(ctx context.Context, input *CreateLocationRequest) (*LocationResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	location := models.Location{Name: input.Body.Name, Address: input.Body.Address}
	if err := h.db.Create(&location).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create location: " + err.Error())
	}

	return &LocationResponse{Body: location}, nil
}

type ListLocationsRequest struct {
	auth.AuthInput
}

type ListLocationsResponse struct {
	Body []models.Location
}

func (h *ReferenceHandler) HandleListLocations(ctx context.Context, input *ListLocationsRequest) (*ListLocationsResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	var locations []models.Location
	if err := h.db.Order("name asc").Find(&locations).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list locations: " + err.Error())
	}

	return &ListLocationsResponse{Body: locations}, nil
}

type CreateChildRequest struct {
	auth.AuthInput
	Body struct {
		Name       string    `json:"name" required:"true"`
		BirthDate  time.Time `json:"birth_date" required:"true"`
		LocationID uint      `json:"location_id" required:"true"`
	}
}

type ChildResponse struct {
	Body models.Child
}

func (h *ReferenceHandler) HandleCreateChild(ctx context.Context, input *CreateChildRequest) (*ChildResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	var location models.Location
	if err := h.db.First(&location, input.Body.LocationID).Error; err != nil {
		return nil, huma.Error404NotFound("Location not found")
	}

	child := models.Child{
		Name:       input.Body.Name,
		BirthDate:  input.Body.BirthDate,
		LocationID: input.Body.LocationID,
	}
	if err := h.db.Create(&child).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create child: " + err.Error())
	}

	return &ChildResponse{Body: child}, nil
}

type ListChildrenRequest struct {
	auth.AuthInput
	LocationID uint `query:"location_id" required:"false"`
}

type ListChildrenResponse struct {
	Body []models.Child
}

func (h *ReferenceHandler) HandleListChildren(ctx context.Context, input *ListChildrenRequest) (*ListChildrenResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	query := h.db.Order("name asc")
	if input.LocationID != 0 {
		query = query.Where("location_id = ?", input.LocationID)
	}

	var children []models.Child
	if err := query.Find(&children).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list children: " + err.Error())
	}

	return &ListChildrenResponse{Body: children}, nil
}

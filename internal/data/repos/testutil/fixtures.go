package testutil

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

func SeedCompany(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *directory.Company {
	tb.Helper()
	c := &directory.Company{ID: uuid.New(), Name: name}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed company: %v", err)
	}
	return c
}

func SeedHouse(tb testing.TB, ctx context.Context, tx *gorm.DB, companyID uuid.UUID, address string) *directory.House {
	tb.Helper()
	h := &directory.House{ID: uuid.New(), CompanyID: companyID, Address: address, ApartmentCount: 40}
	if err := tx.WithContext(ctx).Create(h).Error; err != nil {
		tb.Fatalf("seed house: %v", err)
	}
	return h
}

// SeedUser creates a user with a random telegram id. Staff roles should pass companyID.
func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, role requests.Role, companyID *uuid.UUID, houseID *uuid.UUID) *directory.User {
	tb.Helper()
	u := &directory.User{
		ID:         uuid.New(),
		TelegramID: rand.Int63n(1<<40) + 1,
		FirstName:  string(role),
		Role:       role,
		CompanyID:  companyID,
		HouseID:    houseID,
		Apartment:  "12",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedRequest inserts a request directly in status new.
func SeedRequest(tb testing.TB, ctx context.Context, tx *gorm.DB, createdBy uuid.UUID, companyID *uuid.UUID) *requests.MaintenanceRequest {
	tb.Helper()
	r := &requests.MaintenanceRequest{
		ID:          uuid.New(),
		Status:      requests.StatusNew,
		Category:    requests.CategoryPlumbing,
		Title:       "Течёт кран",
		Description: "На кухне",
		CreatedBy:   createdBy,
		CompanyID:   companyID,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed request: %v", err)
	}
	return r
}

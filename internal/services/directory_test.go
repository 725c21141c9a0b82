package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/housedesk-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

func strp(s string) *string { return &s }

func TestUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewDirectoryService(env.db, env.log, env.repos)
	company := testutil.SeedCompany(t, ctx, env.db, "УК Дом")
	house := testutil.SeedHouse(t, ctx, env.db, company.ID, "пр. Мира, 1")
	me := testutil.SeedUser(t, ctx, env.db, requests.RoleResident, nil, nil)

	got, err := svc.UpdateMe(as(me), ProfileUpdate{
		FirstName: strp("  Анна "),
		Phone:     strp("+79990001122"),
		HouseID:   &house.ID,
		Apartment: strp("7"),
	})
	if err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if got.FirstName != "Анна" || got.Apartment != "7" || got.House == nil || got.House.Address != "пр. Мира, 1" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	missing := uuid.New()
	_, err = svc.UpdateMe(as(me), ProfileUpdate{HouseID: &missing})
	wantCode(t, err, domainagg.CodeValidation)

	got, err = svc.UpdateMe(as(me), ProfileUpdate{ClearHouse: true})
	if err != nil {
		t.Fatalf("clear house: %v", err)
	}
	if got.HouseID != nil {
		t.Fatalf("house should be cleared")
	}

	me2, err := svc.GetMe(as(me))
	if err != nil || me2.FirstName != "Анна" {
		t.Fatalf("GetMe: %+v err=%v", me2, err)
	}
}

func TestCompanyAndHouseAdministration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewDirectoryService(env.db, env.log, env.repos)
	root := testutil.SeedUser(t, ctx, env.db, requests.RoleSuperAdmin, nil, nil)
	resident := testutil.SeedUser(t, ctx, env.db, requests.RoleResident, nil, nil)

	_, err := svc.CreateCompany(as(resident), CompanyInput{Name: strp("x")})
	wantCode(t, err, domainagg.CodeDenied)
	_, err = svc.CreateCompany(as(root), CompanyInput{})
	wantCode(t, err, domainagg.CodeValidation)
	_, err = svc.CreateCompany(as(root), CompanyInput{Name: strp("x"), Email: strp("not-an-email")})
	wantCode(t, err, domainagg.CodeValidation)

	company, err := svc.CreateCompany(as(root), CompanyInput{Name: strp("УК Восток"), Email: strp("info@vostok.ru")})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	company, err = svc.UpdateCompany(as(root), company.ID, CompanyInput{Phone: strp("+7 495 000-00-00")})
	if err != nil || company.Phone == "" || company.Name != "УК Восток" {
		t.Fatalf("UpdateCompany: %+v err=%v", company, err)
	}

	orphan := uuid.New()
	_, err = svc.CreateHouse(as(root), HouseInput{CompanyID: &orphan, Address: strp("ул. Новая, 2")})
	wantCode(t, err, domainagg.CodeValidation)

	house, err := svc.CreateHouse(as(root), HouseInput{CompanyID: &company.ID, Address: strp("ул. Новая, 2")})
	if err != nil {
		t.Fatalf("CreateHouse: %v", err)
	}
	testutil.SeedUser(t, ctx, env.db, requests.RoleResident, nil, &house.ID)
	testutil.SeedUser(t, ctx, env.db, requests.RoleDispatcher, &company.ID, nil)

	companies, total, err := svc.ListCompanies(as(root), 0, 0)
	if err != nil || total != 1 {
		t.Fatalf("ListCompanies: total=%d err=%v", total, err)
	}
	if companies[0].HousesCount != 1 || companies[0].UsersCount != 1 {
		t.Fatalf("company counts: %+v", companies[0])
	}

	houses, _, err := svc.ListHouses(as(resident), &company.ID, 0, 0)
	if err != nil || len(houses) != 1 || houses[0].ResidentsCount != 1 {
		t.Fatalf("ListHouses: %+v err=%v", houses, err)
	}

	n := -1
	_, err = svc.UpdateHouse(as(root), house.ID, HouseInput{ApartmentCount: &n})
	wantCode(t, err, domainagg.CodeValidation)

	if err := svc.DeleteCompany(as(root), company.ID); err != nil {
		t.Fatalf("DeleteCompany: %v", err)
	}
	houses, _, _ = svc.ListHouses(as(resident), nil, 0, 0)
	if len(houses) != 0 {
		t.Fatalf("houses of a deleted company should be gone, got %d", len(houses))
	}
	err = svc.DeleteHouse(as(root), house.ID)
	wantCode(t, err, domainagg.CodeNotFound)
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewDirectoryService(env.db, env.log, env.repos)
	root := testutil.SeedUser(t, ctx, env.db, requests.RoleSuperAdmin, nil, nil)
	company := testutil.SeedCompany(t, ctx, env.db, "УК Запад")
	u := testutil.SeedUser(t, ctx, env.db, requests.RoleResident, nil, nil)

	_, err := svc.UpdateUser(as(root), u.ID, UserUpdate{Role: strp("dispatcher")})
	wantCode(t, err, domainagg.CodeValidation)
	_, err = svc.UpdateUser(as(root), u.ID, UserUpdate{Role: strp("janitor")})
	wantCode(t, err, domainagg.CodeValidation)
	_, err = svc.UpdateUser(as(root), u.ID, UserUpdate{Password: strp("short")})
	wantCode(t, err, domainagg.CodeValidation)

	promoted, err := svc.UpdateUser(as(root), u.ID, UserUpdate{
		Role:      strp("dispatcher"),
		CompanyID: &company.ID,
		Password:  strp("long-enough"),
	})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.Role != requests.RoleDispatcher || promoted.CompanyID == nil || *promoted.CompanyID != company.ID {
		t.Fatalf("promoted: %+v", promoted)
	}
	if bcrypt.CompareHashAndPassword([]byte(promoted.PasswordHash), []byte("long-enough")) != nil {
		t.Fatalf("password hash not stored")
	}

	users, total, err := svc.ListUsers(as(root), UserListInput{Role: "dispatcher"})
	if err != nil || total != 1 || users[0].ID != u.ID {
		t.Fatalf("ListUsers: total=%d err=%v", total, err)
	}

	_, err = svc.UpdateUser(as(root), root.ID, UserUpdate{Role: strp("resident")})
	wantCode(t, err, domainagg.CodeValidation)
	err = svc.DeleteUser(as(root), root.ID)
	wantCode(t, err, domainagg.CodeValidation)
	err = svc.DeleteUser(as(promoted), root.ID)
	wantCode(t, err, domainagg.CodeDenied)

	if err := svc.DeleteUser(as(root), u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	_, err = svc.UpdateUser(as(root), u.ID, UserUpdate{Apartment: strp("1")})
	wantCode(t, err, domainagg.CodeNotFound)
}

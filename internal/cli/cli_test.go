package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/housedesk-backend/internal/data/aggregates"
	"github.com/yungbote/housedesk-backend/internal/data/repos"
	"github.com/yungbote/housedesk-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
)

const fixtureYAML = `
companies:
  - name: УК Север
    phone: "+7 812 000-00-00"
    houses:
      - address: ул. Лесная, 3
        apartment_count: 60
users:
  - telegram_id: 1
    first_name: Root
    role: super_admin
    password: change-me-please
  - telegram_id: 2
    first_name: Ольга
    role: dispatcher
    company: УК Север
  - telegram_id: 3
    first_name: Пётр
    company: УК Север
    house: ул. Лесная, 3
    apartment: "14"
`

func TestParseFixtureRejectsBadReferences(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "companies:\n  - name: A\n    colour: red\n",
		"missing name":    "companies:\n  - phone: x\n",
		"unknown role":    "users:\n  - telegram_id: 1\n    role: janitor\n",
		"staff no scope":  "users:\n  - telegram_id: 1\n    role: admin\n",
		"unknown company": "users:\n  - telegram_id: 1\n    company: Nope\n",
		"duplicate user":  "users:\n  - telegram_id: 1\n  - telegram_id: 1\n",
		"unknown house":   "companies:\n  - name: A\nusers:\n  - telegram_id: 1\n    company: A\n    house: B\n",
	}
	for name, doc := range cases {
		if _, err := ParseFixture(strings.NewReader(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	f, err := ParseFixture(strings.NewReader(""))
	if err != nil || len(f.Companies) != 0 {
		t.Fatalf("empty fixture: %v", err)
	}
}

func TestApplyFixtureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	set := repos.NewSet(db, testutil.Logger(t))

	f, err := ParseFixture(strings.NewReader(fixtureYAML))
	if err != nil {
		t.Fatalf("ParseFixture: %v", err)
	}
	rep, err := ApplyFixture(ctx, db, set, f)
	if err != nil {
		t.Fatalf("ApplyFixture: %v", err)
	}
	if rep.CompaniesCreated != 1 || rep.HousesCreated != 1 || rep.UsersCreated != 3 {
		t.Fatalf("first run: %+v", rep)
	}

	rep, err = ApplyFixture(ctx, db, set, f)
	if err != nil {
		t.Fatalf("second ApplyFixture: %v", err)
	}
	if rep.CompaniesCreated != 0 || rep.HousesCreated != 0 || rep.UsersCreated != 0 || rep.UsersSkipped != 3 {
		t.Fatalf("second run: %+v", rep)
	}

	dbc := dbctx.Context{Ctx: ctx}
	users, err := set.Users.GetByTelegramIDs(dbc, []int64{1, 2, 3})
	if err != nil || len(users) != 3 {
		t.Fatalf("users: %v", err)
	}
	byTG := map[int64]int{}
	for i, u := range users {
		byTG[u.TelegramID] = i
	}
	root, dispatcher, resident := users[byTG[1]], users[byTG[2]], users[byTG[3]]
	if bcrypt.CompareHashAndPassword([]byte(root.PasswordHash), []byte("change-me-please")) != nil {
		t.Fatalf("root password not hashed")
	}
	if dispatcher.CompanyID == nil || dispatcher.Role != requests.RoleDispatcher {
		t.Fatalf("dispatcher: %+v", dispatcher)
	}
	if resident.Role != requests.RoleResident || resident.CompanyID != nil || resident.HouseID == nil || resident.Apartment != "14" {
		t.Fatalf("resident: %+v", resident)
	}
}

func TestWriteTransitions(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTransitions(&buf); err != nil {
		t.Fatalf("WriteTransitions: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"FROM", "completed", "reopened", "creator", "cancelled"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	lines := strings.Count(strings.TrimSpace(out), "\n")
	if lines != len(requests.Table())+2 {
		t.Fatalf("expected header, %d moves and 2 final states, got %d lines", len(requests.Table()), lines+1)
	}
}

func TestVerifyLedgers(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	lifecycle := aggregates.NewRequestLifecycle(aggregates.RequestLifecycleDeps{
		Base:     aggregates.BaseDeps{DB: db, Log: log},
		Requests: set.Requests,
		History:  set.History,
	})

	company := testutil.SeedCompany(t, ctx, db, "УК Юг")
	dispatcher := testutil.SeedUser(t, ctx, db, requests.RoleDispatcher, &company.ID, nil)
	resident := testutil.SeedUser(t, ctx, db, requests.RoleResident, nil, nil)
	dbc := dbctx.Context{Ctx: ctx}
	created, err := set.Requests.Create(dbc, []*requests.MaintenanceRequest{
		{Category: requests.CategoryPlumbing, Title: "Течёт кран", CreatedBy: resident.ID, CompanyID: &company.ID},
		{Category: requests.CategoryOther, Title: "Шум", CreatedBy: resident.ID, CompanyID: &company.ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := lifecycle.ApplyTransition(ctx, domainagg.TransitionInput{
		RequestID: created[0].ID,
		Target:    requests.StatusAccepted,
		Actor:     dispatcher.Actor(),
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	checked, problems, err := VerifyLedgers(ctx, set)
	if err != nil || checked != 2 || len(problems) != 0 {
		t.Fatalf("clean ledgers: checked=%d problems=%v err=%v", checked, problems, err)
	}

	// A status written behind the engine's back no longer replays.
	if err := db.Model(&requests.MaintenanceRequest{}).Where("id = ?", created[1].ID).
		Update("status", requests.StatusCompleted).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}
	_, problems, err = VerifyLedgers(ctx, set)
	if err != nil || len(problems) != 1 || problems[0].RequestID != created[1].ID {
		t.Fatalf("tampered ledger: problems=%v err=%v", problems, err)
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/repos"
	"github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/services"
)

// Fixture is the YAML document accepted by `housectl seed`.
type Fixture struct {
	Companies []CompanyFixture `yaml:"companies"`
	Users     []UserFixture    `yaml:"users"`
}

type CompanyFixture struct {
	Name        string         `yaml:"name"`
	Phone       string         `yaml:"phone"`
	Email       string         `yaml:"email"`
	Address     string         `yaml:"address"`
	Description string         `yaml:"description"`
	Houses      []HouseFixture `yaml:"houses"`
}

type HouseFixture struct {
	Address        string `yaml:"address"`
	ApartmentCount int    `yaml:"apartment_count"`
}

// UserFixture names its company and house by name and address. Staff are
// attached to Company; residents live in House, looked up inside Company.
type UserFixture struct {
	TelegramID int64  `yaml:"telegram_id"`
	Username   string `yaml:"username"`
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Phone      string `yaml:"phone"`
	Role       string `yaml:"role"`
	Company    string `yaml:"company"`
	House      string `yaml:"house"`
	Apartment  string `yaml:"apartment"`
	Password   string `yaml:"password"`
}

type SeedReport struct {
	CompaniesCreated int
	HousesCreated    int
	UsersCreated     int
	UsersSkipped     int
}

// ParseFixture decodes and checks a fixture without touching the database.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	houses := map[string]map[string]bool{}
	for i, c := range f.Companies {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("companies[%d]: name is required", i)
		}
		if houses[name] != nil {
			return nil, fmt.Errorf("companies[%d]: duplicate company %q", i, name)
		}
		houses[name] = map[string]bool{}
		for j, h := range c.Houses {
			if strings.TrimSpace(h.Address) == "" {
				return nil, fmt.Errorf("companies[%d].houses[%d]: address is required", i, j)
			}
			if h.ApartmentCount < 0 {
				return nil, fmt.Errorf("companies[%d].houses[%d]: apartment_count must not be negative", i, j)
			}
			houses[name][strings.TrimSpace(h.Address)] = true
		}
	}

	seen := map[int64]bool{}
	for i, u := range f.Users {
		if u.TelegramID == 0 {
			return nil, fmt.Errorf("users[%d]: telegram_id is required", i)
		}
		if seen[u.TelegramID] {
			return nil, fmt.Errorf("users[%d]: duplicate telegram_id %d", i, u.TelegramID)
		}
		seen[u.TelegramID] = true

		role := requests.RoleResident
		if strings.TrimSpace(u.Role) != "" {
			r, err := requests.ParseRole(u.Role)
			if err != nil {
				return nil, fmt.Errorf("users[%d]: %w", i, err)
			}
			role = r
		}
		f.Users[i].Role = string(role)

		company := strings.TrimSpace(u.Company)
		if company != "" && houses[company] == nil {
			return nil, fmt.Errorf("users[%d]: unknown company %q", i, company)
		}
		if (role == requests.RoleDispatcher || role == requests.RoleAdmin) && company == "" {
			return nil, fmt.Errorf("users[%d]: %s needs a company", i, role)
		}
		if h := strings.TrimSpace(u.House); h != "" {
			if company == "" || !houses[company][h] {
				return nil, fmt.Errorf("users[%d]: unknown house %q in company %q", i, h, company)
			}
		}
	}
	return &f, nil
}

// ApplyFixture inserts whatever the fixture describes that is not already
// present. Companies match by name, houses by address, users by telegram_id;
// existing rows are never modified.
func ApplyFixture(ctx context.Context, db *gorm.DB, set repos.Set, f *Fixture) (SeedReport, error) {
	var rep SeedReport
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		companyIDs := map[string]uuid.UUID{}
		houseIDs := map[string]uuid.UUID{}

		for _, c := range f.Companies {
			name := strings.TrimSpace(c.Name)
			company, err := set.Companies.GetByName(dbc, name)
			if err != nil {
				return err
			}
			if company == nil {
				created, err := set.Companies.Create(dbc, []*directory.Company{{
					Name:        name,
					Phone:       c.Phone,
					Email:       c.Email,
					Address:     c.Address,
					Description: c.Description,
				}})
				if err != nil {
					return fmt.Errorf("create company %q: %w", name, err)
				}
				company = created[0]
				rep.CompaniesCreated++
			}
			companyIDs[name] = company.ID

			for _, h := range c.Houses {
				addr := strings.TrimSpace(h.Address)
				house, err := set.Houses.GetByAddress(dbc, company.ID, addr)
				if err != nil {
					return err
				}
				if house == nil {
					created, err := set.Houses.Create(dbc, []*directory.House{{
						CompanyID:      company.ID,
						Address:        addr,
						ApartmentCount: h.ApartmentCount,
					}})
					if err != nil {
						return fmt.Errorf("create house %q: %w", addr, err)
					}
					house = created[0]
					rep.HousesCreated++
				}
				houseIDs[name+"\x00"+addr] = house.ID
			}
		}

		for _, u := range f.Users {
			existing, err := set.Users.GetByTelegramIDs(dbc, []int64{u.TelegramID})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				rep.UsersSkipped++
				continue
			}
			row := &directory.User{
				TelegramID: u.TelegramID,
				Username:   u.Username,
				FirstName:  u.FirstName,
				LastName:   u.LastName,
				Phone:      u.Phone,
				Role:       requests.Role(u.Role),
				Apartment:  u.Apartment,
			}
			company := strings.TrimSpace(u.Company)
			if row.Role.IsStaff() && company != "" {
				id := companyIDs[company]
				row.CompanyID = &id
			}
			if h := strings.TrimSpace(u.House); h != "" {
				id := houseIDs[company+"\x00"+h]
				row.HouseID = &id
			}
			if u.Password != "" {
				hash, err := services.HashPassword(u.Password)
				if err != nil {
					return fmt.Errorf("hash password for %d: %w", u.TelegramID, err)
				}
				row.PasswordHash = hash
			}
			if _, err := set.Users.Create(dbc, []*directory.User{row}); err != nil {
				return fmt.Errorf("create user %d: %w", u.TelegramID, err)
			}
			rep.UsersCreated++
		}
		return nil
	})
	return rep, err
}

// SeedCmd returns the seed command.
func SeedCmd() *cobra.Command {
	var (
		file       string
		sqlitePath string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load companies, houses and users from a YAML fixture",
		Long: `Inserts the companies, houses and users listed in a fixture file.
Running it twice is safe: rows that already exist are left alone.

Examples:
  housectl seed --file configs/seed.example.yaml
  housectl seed --file fixtures.yaml --sqlite dev.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fh.Close()
			f, err := ParseFixture(fh)
			if err != nil {
				return err
			}

			st, err := openStore(sqlitePath)
			if err != nil {
				return err
			}
			defer st.Close()

			rep, err := ApplyFixture(cmd.Context(), st.db, st.repos, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ companies +%d, houses +%d, users +%d (%d already present)\n",
				rep.CompaniesCreated, rep.HousesCreated, rep.UsersCreated, rep.UsersSkipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixture file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	addSQLiteFlag(cmd, &sqlitePath)
	return cmd
}

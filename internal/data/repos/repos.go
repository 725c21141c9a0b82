package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/repos/auth"
	"github.com/yungbote/housedesk-backend/internal/data/repos/directory"
	"github.com/yungbote/housedesk-backend/internal/data/repos/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type UserRepo = directory.UserRepo
type CompanyRepo = directory.CompanyRepo
type HouseRepo = directory.HouseRepo
type UserTokenRepo = auth.UserTokenRepo

type RequestRepo = requests.RequestRepo
type HistoryRepo = requests.HistoryRepo

// Set is every repository the app wires, built over one *gorm.DB.
type Set struct {
	Users     UserRepo
	Companies CompanyRepo
	Houses    HouseRepo
	Tokens    UserTokenRepo
	Requests  RequestRepo
	History   HistoryRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Users:     directory.NewUserRepo(db, log),
		Companies: directory.NewCompanyRepo(db, log),
		Houses:    directory.NewHouseRepo(db, log),
		Tokens:    auth.NewUserTokenRepo(db, log),
		Requests:  requests.NewRequestRepo(db, log),
		History:   requests.NewHistoryRepo(db, log),
	}
}

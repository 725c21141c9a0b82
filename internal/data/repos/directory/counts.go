package directory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type groupCount struct {
	Key uuid.UUID `gorm:"column:group_key"`
	N   int64     `gorm:"column:n"`
}

// countBy counts rows of q grouped by column, restricted to ids. Every id
// is present in the result, zero when it has no rows.
func countBy(q *gorm.DB, column string, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for _, id := range ids {
		out[id] = 0
	}
	var rows []groupCount
	if err := q.
		Select(column+" AS group_key, COUNT(*) AS n").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Key] = r.N
	}
	return out, nil
}

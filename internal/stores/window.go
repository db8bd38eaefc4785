package stores

import (
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/types"
	"gorm.io/gorm"
)

// Clock returns the current time; "today" is its UTC calendar day.
type Clock func() time.Time

// DisplayStatus derives the lifecycle phase from the store dates.
func DisplayStatus(start, end, today types.Date) enums.DisplayStatus {
	switch {
	case start.After(today):
		return enums.DisplayStatusUpcoming
	case end.Before(today):
		return enums.DisplayStatusEnded
	default:
		return enums.DisplayStatusOngoing
	}
}

func applyDateWindow(q *gorm.DB, filter enums.DateFilter, today types.Date) *gorm.DB {
	switch filter {
	case enums.DateFilterUpcoming:
		return q.Where("start_date > ?", today)
	case enums.DateFilterOngoing:
		return q.Where("start_date <= ? AND end_date >= ?", today, today)
	case enums.DateFilterEnded:
		return q.Where("end_date < ?", today)
	default:
		return q
	}
}

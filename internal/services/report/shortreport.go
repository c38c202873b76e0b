package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// ShortReportRow is one ward's tally of registered versus present
// employees for a single date.
type ShortReportRow struct {
	WardID     int64  `bun:"ward_id" json:"ward_id"`
	WardName   string `bun:"ward_name" json:"ward_name"`
	ZoneName   string `bun:"zone_name" json:"zone_name"`
	CityName   string `bun:"city_name" json:"city_name"`
	Registered int64  `bun:"registered" json:"registered"`
	Present    int64  `bun:"present" json:"present"`
}

// ShortReport tallies per-ward present/registered counts for one date,
// optionally narrowed by city and zone name.
func (e *Engine) ShortReport(ctx context.Context, cityName, zoneName, date string, scope authz.CityScope) ([]ShortReportRow, error) {
	conds := []string{}
	args := []any{date}

	if cityName != "" {
		conds = append(conds, "LOWER(c.name) LIKE ?")
		args = append(args, contains(cityName))
	}
	if zoneName != "" {
		conds = append(conds, "LOWER(z.name) LIKE ?")
		args = append(args, contains(zoneName))
	}
	if !scope.All {
		if len(scope.Cities) == 0 {
			conds = append(conds, "1 = 0")
		} else {
			conds = append(conds, "c.id IN (?)")
			args = append(args, bun.In(scope.Cities))
		}
	}

	query := `SELECT w.id AS ward_id,
w.name AS ward_name,
z.name AS zone_name,
c.name AS city_name,
COUNT(DISTINCT e.emp_id) AS registered,
COUNT(DISTINCT a.emp_id) AS present
FROM wards w
JOIN zones z ON z.id = w.zone_id
JOIN cities c ON c.id = z.city_id
LEFT JOIN employees e ON e.ward_id = w.id
LEFT JOIN attendance a ON a.emp_id = e.emp_id AND a.date = ? AND a.punch_in_time IS NOT NULL`
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, "\n  AND ")
	}
	query += "\nGROUP BY w.id, w.name, z.name, c.name\nORDER BY c.name ASC, z.name ASC, w.name ASC"

	var rows []ShortReportRow
	if err := e.db.NewRaw(query, args...).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("run short report: %w", err)
	}
	return rows, nil
}

// Package report composes the attendance report queries: a grouping
// declares the projection and joins, the filter builder renders a bound
// WHERE clause, and the caller's city scope is injected so no row outside
// the scope can leak. Output renders as a JSON envelope or RFC-4180 CSV.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// Engine runs report queries against the primary database.
type Engine struct {
	db *bun.DB
}

// NewEngine creates the report engine.
func NewEngine(db *bun.DB) *Engine {
	return &Engine{db: db}
}

// Report is one rendered report: the JSON envelope fields plus the CSV
// column descriptors.
type Report struct {
	GroupBy      string           `json:"group_by"`
	LocationType LocationType     `json:"location_type"`
	Filters      map[string]any   `json:"filters"`
	Count        int              `json:"count"`
	Data         []map[string]any `json:"data"`

	columns []Column
	suffix  string
}

// Run builds and executes the report query for one grouping.
func (e *Engine) Run(ctx context.Context, groupBy string, lt LocationType, f Filters, scope authz.CityScope) (*Report, error) {
	g, ok := groupings[groupBy]
	if !ok {
		return nil, fmt.Errorf("unknown group_by %q (expected one of %s)", groupBy, strings.Join(GroupNames(), ", "))
	}

	locExpr := locationExpression(lt)
	query, args := e.compose(g, lt, locExpr, f, scope)

	var rows []map[string]any
	if err := e.db.NewRaw(query, args...).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("run %s report: %w", groupBy, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return &Report{
		GroupBy:      groupBy,
		LocationType: lt,
		Filters:      f.echo(),
		Count:        len(rows),
		Data:         rows,
		columns:      g.columns,
		suffix:       g.suffix,
	}, nil
}

// compose assembles SELECT + FROM + WHERE + GROUP BY + HAVING + ORDER BY
// with every value as a bound parameter.
func (e *Engine) compose(g grouping, lt LocationType, locExpr string, f Filters, scope authz.CityScope) (string, []any) {
	from := g.from
	if from == "" {
		from = baseFrom
	}
	from = strings.ReplaceAll(from, "%YESTERDAY%", e.yesterdayExpression())

	conds, args := f.build(locExpr, g.supervisorJoined)

	// Scope injection: a non-all scope narrows to the granted cities, and
	// an empty scope short-circuits to zero rows instead of failing.
	if !scope.All {
		if len(scope.Cities) == 0 {
			conds = append(conds, "1 = 0")
		} else {
			conds = append(conds, "c.id IN (?)")
			args = append(args, bun.In(scope.Cities))
		}
	}

	var b strings.Builder
	b.WriteString(g.selectFor(locExpr))
	b.WriteString("\n")
	b.WriteString(from)
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, "\n  AND "))
	}
	if g.groupBy != "" {
		b.WriteString("\n")
		b.WriteString(g.groupBy)
	}
	if f.AbsenteesOnly && g.suffix == "supervisor-summary" {
		b.WriteString("\nHAVING COUNT(DISTINCT e.emp_id) - COUNT(DISTINCT a.emp_id) > 0")
	}
	if g.orderBy != "" {
		b.WriteString("\n")
		b.WriteString(g.orderBy)
	}
	return b.String(), args
}

// yesterdayExpression renders yesterday's date in the database's timezone
// as a YYYY-MM-DD string, matching the attendance date column.
func (e *Engine) yesterdayExpression() string {
	if e.db.Dialect().Name() == dialect.SQLite {
		return "date('now', '-1 day')"
	}
	return "to_char(CURRENT_DATE - 1, 'YYYY-MM-DD')"
}

// Columns exposes the CSV column descriptors of the rendered report.
func (r *Report) Columns() []Column {
	return r.columns
}

// Filename builds the CSV attachment name, with the timestamp's colons and
// dots folded to dashes.
func (r *Report) Filename(now time.Time) string {
	ts := now.UTC().Format(time.RFC3339)
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("attendance-%s-report-%s.csv", r.suffix, ts)
}

// WriteCSV renders the report as RFC-4180 CSV with every field quoted,
// embedded quotes doubled, and nulls as empty strings.
func (r *Report) WriteCSV(w io.Writer) error {
	writeRow := func(cells []string) error {
		for i, cell := range cells {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			quoted := `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
			if _, err := io.WriteString(w, quoted); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "\r\n")
		return err
	}

	headers := make([]string, len(r.columns))
	for i, col := range r.columns {
		headers[i] = col.Header
	}
	if err := writeRow(headers); err != nil {
		return err
	}

	for _, row := range r.Data {
		cells := make([]string, len(r.columns))
		for i, col := range r.columns {
			cells[i] = cellString(row[col.Field])
		}
		if err := writeRow(cells); err != nil {
			return err
		}
	}
	return nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

package report

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filters are the accepted report query parameters. Pointer fields are
// absent when nil; text names match case-insensitively on containment and
// ids match exactly.
type Filters struct {
	Date      string
	StartDate string
	EndDate   string

	ZoneID       *int64
	WardID       *int64
	CityID       *int64
	SupervisorID *int64
	EmployeeID   *int64

	EmpCode        string
	ZoneName       string
	WardName       string
	CityName       string
	SupervisorName string
	Search         string
	Location       string

	HasPunchIn  *bool
	HasPunchOut *bool

	AbsenteesOnly bool
}

// FiltersFromQuery parses the report filters out of a request query.
func FiltersFromQuery(q url.Values) (Filters, error) {
	f := Filters{
		Date:           strings.TrimSpace(q.Get("date")),
		StartDate:      strings.TrimSpace(q.Get("start_date")),
		EndDate:        strings.TrimSpace(q.Get("end_date")),
		EmpCode:        strings.TrimSpace(q.Get("emp_code")),
		ZoneName:       strings.TrimSpace(q.Get("zone_name")),
		WardName:       strings.TrimSpace(q.Get("ward_name")),
		CityName:       strings.TrimSpace(q.Get("city_name")),
		SupervisorName: strings.TrimSpace(q.Get("supervisor_name")),
		Search:         strings.TrimSpace(q.Get("search")),
		Location:       strings.TrimSpace(q.Get("location")),
	}

	var err error
	if f.ZoneID, err = parseID(q, "zone_id"); err != nil {
		return f, err
	}
	if f.WardID, err = parseID(q, "ward_id"); err != nil {
		return f, err
	}
	if f.CityID, err = parseID(q, "city_id"); err != nil {
		return f, err
	}
	if f.SupervisorID, err = parseID(q, "supervisor_id"); err != nil {
		return f, err
	}
	if f.EmployeeID, err = parseID(q, "employee_id"); err != nil {
		return f, err
	}
	if f.HasPunchIn, err = parseBool(q, "has_punch_in"); err != nil {
		return f, err
	}
	if f.HasPunchOut, err = parseBool(q, "has_punch_out"); err != nil {
		return f, err
	}
	if q.Get("absentees_only") != "" {
		v, perr := strconv.ParseBool(q.Get("absentees_only"))
		if perr != nil {
			return f, fmt.Errorf("absentees_only must be a boolean, got %q", q.Get("absentees_only"))
		}
		f.AbsenteesOnly = v
	}
	return f, nil
}

func parseID(q url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return &id, nil
}

func parseBool(q url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return &v, nil
}

// build renders the WHERE conditions with bound parameters. locExpr is the
// already-rendered location expression for the location contains filter.
// supervisorJoined tells the supervisor filters whether the query carries
// the sw/u aliases; without them the ward's supervisor assignment is
// checked through an EXISTS subquery.
func (f Filters) build(locExpr string, supervisorJoined bool) (conds []string, args []any) {
	add := func(cond string, vals ...any) {
		conds = append(conds, cond)
		args = append(args, vals...)
	}

	if f.Date != "" {
		add("a.date = ?", f.Date)
	}
	if f.StartDate != "" {
		add("a.date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		add("a.date <= ?", f.EndDate)
	}

	if f.ZoneID != nil {
		add("z.id = ?", *f.ZoneID)
	}
	if f.WardID != nil {
		add("w.id = ?", *f.WardID)
	}
	if f.CityID != nil {
		add("c.id = ?", *f.CityID)
	}
	if f.SupervisorID != nil {
		if supervisorJoined {
			add("sw.supervisor_id = ?", *f.SupervisorID)
		} else {
			add("EXISTS (SELECT 1 FROM supervisor_wards fsw WHERE fsw.ward_id = w.id AND fsw.supervisor_id = ?)", *f.SupervisorID)
		}
	}
	if f.EmployeeID != nil {
		add("e.emp_id = ?", *f.EmployeeID)
	}

	if f.EmpCode != "" {
		add("e.emp_code = ?", f.EmpCode)
	}
	if f.ZoneName != "" {
		add("LOWER(z.name) LIKE ?", contains(f.ZoneName))
	}
	if f.WardName != "" {
		add("LOWER(w.name) LIKE ?", contains(f.WardName))
	}
	if f.CityName != "" {
		add("LOWER(c.name) LIKE ?", contains(f.CityName))
	}
	if f.SupervisorName != "" {
		if supervisorJoined {
			add("LOWER(u.name) LIKE ?", contains(f.SupervisorName))
		} else {
			add("EXISTS (SELECT 1 FROM supervisor_wards fsw JOIN users fu ON fu.id = fsw.supervisor_id WHERE fsw.ward_id = w.id AND LOWER(fu.name) LIKE ?)", contains(f.SupervisorName))
		}
	}
	if f.Search != "" {
		add("(LOWER(e.name) LIKE ? OR LOWER(e.emp_code) LIKE ?)", contains(f.Search), contains(f.Search))
	}
	if f.Location != "" {
		add("LOWER("+locExpr+") LIKE ?", contains(f.Location))
	}

	if f.HasPunchIn != nil {
		if *f.HasPunchIn {
			add("a.punch_in_time IS NOT NULL")
		} else {
			add("a.punch_in_time IS NULL")
		}
	}
	if f.HasPunchOut != nil {
		if *f.HasPunchOut {
			add("a.punch_out_time IS NOT NULL")
		} else {
			add("a.punch_out_time IS NULL")
		}
	}

	return conds, args
}

// echo reports the filters that were actually applied, for the JSON
// envelope.
func (f Filters) echo() map[string]any {
	out := map[string]any{}
	setStr := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	setStr("date", f.Date)
	setStr("start_date", f.StartDate)
	setStr("end_date", f.EndDate)
	setStr("emp_code", f.EmpCode)
	setStr("zone_name", f.ZoneName)
	setStr("ward_name", f.WardName)
	setStr("city_name", f.CityName)
	setStr("supervisor_name", f.SupervisorName)
	setStr("search", f.Search)
	setStr("location", f.Location)

	setID := func(k string, v *int64) {
		if v != nil {
			out[k] = *v
		}
	}
	setID("zone_id", f.ZoneID)
	setID("ward_id", f.WardID)
	setID("city_id", f.CityID)
	setID("supervisor_id", f.SupervisorID)
	setID("employee_id", f.EmployeeID)

	if f.HasPunchIn != nil {
		out["has_punch_in"] = *f.HasPunchIn
	}
	if f.HasPunchOut != nil {
		out["has_punch_out"] = *f.HasPunchOut
	}
	if f.AbsenteesOnly {
		out["absentees_only"] = true
	}
	return out
}

func contains(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

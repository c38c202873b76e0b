package report

import "fmt"

// LocationType selects which punch address feeds the location expression.
type LocationType string

const (
	LocationIn   LocationType = "in"
	LocationOut  LocationType = "out"
	LocationBoth LocationType = "both"
)

// ParseLocationType validates a client-supplied location type, defaulting
// to both.
func ParseLocationType(raw string) (LocationType, error) {
	switch LocationType(raw) {
	case LocationIn, LocationOut, LocationBoth:
		return LocationType(raw), nil
	case "":
		return LocationBoth, nil
	default:
		return "", fmt.Errorf("location_type must be in, out, or both, got %q", raw)
	}
}

// locationExpression renders the SQL fragment for the punch location.
// Whitespace-only addresses count as null.
func locationExpression(lt LocationType) string {
	switch lt {
	case LocationIn:
		return "NULLIF(TRIM(a.in_address), '')"
	case LocationOut:
		return "NULLIF(TRIM(a.out_address), '')"
	default:
		return "COALESCE(NULLIF(TRIM(a.in_address), ''), NULLIF(TRIM(a.out_address), ''), 'Unknown Location')"
	}
}

// Column describes one output column: the CSV header and the row-map key it
// reads from.
type Column struct {
	Header string
	Field  string
}

// grouping declares one report variant. selectFor receives the rendered
// location expression; from overrides the default join tree when set.
// supervisorJoined marks join trees that carry the sw/u aliases, which
// switches the supervisor filters from EXISTS subqueries to direct
// predicates.
type grouping struct {
	suffix           string
	selectFor        func(locExpr string) string
	from             string
	groupBy          string
	orderBy          string
	supervisorJoined bool
	columns          []Column
}

// baseFrom is the join tree shared by the attendance-rooted groupings.
// Supervisors are joined only where a grouping projects them: a ward can
// have several supervisors, and joining supervisor_wards here would repeat
// each attendance row once per supervisor.
const baseFrom = `FROM attendance a
JOIN employees e ON e.emp_id = a.emp_id
JOIN wards w ON w.id = a.ward_id
JOIN zones z ON z.id = w.zone_id
JOIN cities c ON c.id = z.city_id`

// supervisorFrom extends baseFrom for the supervisor rollup, where the
// fan-out is the point: each attendance row counts under every supervisor
// of its ward.
const supervisorFrom = baseFrom + `
LEFT JOIN supervisor_wards sw ON sw.ward_id = w.id
LEFT JOIN users u ON u.id = sw.supervisor_id`

var groupings = map[string]grouping{
	"detail": {
		suffix: "detail",
		selectFor: func(locExpr string) string {
			return `SELECT a.attendance_id AS attendance_id,
e.emp_id AS employee_id,
e.emp_code AS emp_code,
e.name AS employee_name,
a.date AS date,
w.name AS ward_name,
z.name AS zone_name,
c.id AS city_id,
c.name AS city_name,
(SELECT u.name FROM supervisor_wards sw
	JOIN users u ON u.id = sw.supervisor_id
	WHERE sw.ward_id = w.id
	ORDER BY u.id LIMIT 1) AS supervisor_name,
a.punch_in_time AS punch_in_time,
a.punch_out_time AS punch_out_time,
a.duration_mins AS duration_mins,
` + locExpr + ` AS location`
		},
		orderBy: "ORDER BY a.date DESC, e.name ASC",
		columns: []Column{
			{"Attendance ID", "attendance_id"},
			{"Employee ID", "employee_id"},
			{"Emp Code", "emp_code"},
			{"Employee Name", "employee_name"},
			{"Date", "date"},
			{"Ward", "ward_name"},
			{"Zone", "zone_name"},
			{"City ID", "city_id"},
			{"City", "city_name"},
			{"Supervisor", "supervisor_name"},
			{"Punch In", "punch_in_time"},
			{"Punch Out", "punch_out_time"},
			{"Duration (mins)", "duration_mins"},
			{"Location", "location"},
		},
	},
	"zone": {
		suffix: "zone",
		selectFor: func(string) string {
			return `SELECT z.id AS zone_id,
z.name AS zone_name,
c.id AS city_id,
c.name AS city_name,
COUNT(a.attendance_id) AS total_records,
COUNT(a.punch_in_time) AS punched_in,
COUNT(a.punch_out_time) AS completed`
		},
		groupBy: "GROUP BY z.id, z.name, c.id, c.name",
		orderBy: "ORDER BY c.name ASC, z.name ASC",
		columns: []Column{
			{"Zone ID", "zone_id"},
			{"Zone", "zone_name"},
			{"City ID", "city_id"},
			{"City", "city_name"},
			{"Total Records", "total_records"},
			{"Punched In", "punched_in"},
			{"Completed", "completed"},
		},
	},
	"ward": {
		suffix: "ward",
		selectFor: func(string) string {
			return `SELECT w.id AS ward_id,
w.name AS ward_name,
z.name AS zone_name,
c.id AS city_id,
c.name AS city_name,
COUNT(a.attendance_id) AS total_records,
COUNT(a.punch_in_time) AS punched_in,
COUNT(a.punch_out_time) AS completed`
		},
		groupBy: "GROUP BY w.id, w.name, z.name, c.id, c.name",
		orderBy: "ORDER BY c.name ASC, z.name ASC, w.name ASC",
		columns: []Column{
			{"Ward ID", "ward_id"},
			{"Ward", "ward_name"},
			{"Zone", "zone_name"},
			{"City ID", "city_id"},
			{"City", "city_name"},
			{"Total Records", "total_records"},
			{"Punched In", "punched_in"},
			{"Completed", "completed"},
		},
	},
	"city": {
		suffix: "city",
		selectFor: func(string) string {
			return `SELECT c.id AS city_id,
c.name AS city_name,
COUNT(a.attendance_id) AS total_records,
COUNT(a.punch_in_time) AS punched_in,
COUNT(a.punch_out_time) AS completed`
		},
		groupBy: "GROUP BY c.id, c.name",
		orderBy: "ORDER BY c.name ASC",
		columns: []Column{
			{"City ID", "city_id"},
			{"City", "city_name"},
			{"Total Records", "total_records"},
			{"Punched In", "punched_in"},
			{"Completed", "completed"},
		},
	},
	"supervisor": {
		suffix: "supervisor",
		selectFor: func(string) string {
			return `SELECT u.id AS supervisor_id,
u.name AS supervisor_name,
c.name AS city_name,
COUNT(a.attendance_id) AS total_records,
COUNT(a.punch_in_time) AS punched_in,
COUNT(a.punch_out_time) AS completed`
		},
		from:             supervisorFrom,
		groupBy:          "GROUP BY u.id, u.name, c.name",
		orderBy:          "ORDER BY u.name ASC",
		supervisorJoined: true,
		columns: []Column{
			{"Supervisor ID", "supervisor_id"},
			{"Supervisor", "supervisor_name"},
			{"City", "city_name"},
			{"Total Records", "total_records"},
			{"Punched In", "punched_in"},
			{"Completed", "completed"},
		},
	},
	"location": {
		suffix: "location",
		selectFor: func(locExpr string) string {
			return `SELECT ` + locExpr + ` AS location,
c.name AS city_name,
COUNT(a.attendance_id) AS total_records,
COUNT(DISTINCT a.emp_id) AS employees`
		},
		groupBy: "GROUP BY location, c.name",
		orderBy: "ORDER BY total_records DESC",
		columns: []Column{
			{"Location", "location"},
			{"City", "city_name"},
			{"Total Records", "total_records"},
			{"Employees", "employees"},
		},
	},
	"ward_summary": {
		suffix: "ward-summary",
		selectFor: func(string) string {
			return `SELECT w.id AS ward_id,
w.name AS ward_name,
z.name AS zone_name,
c.name AS city_name,
COUNT(DISTINCT we.emp_id) AS total_employees,
COUNT(DISTINCT a.emp_id) AS present`
		},
		from:    baseFrom + "\nJOIN employees we ON we.ward_id = w.id",
		groupBy: "GROUP BY w.id, w.name, z.name, c.name",
		orderBy: "ORDER BY c.name ASC, z.name ASC, w.name ASC",
		columns: []Column{
			{"Ward ID", "ward_id"},
			{"Ward", "ward_name"},
			{"Zone", "zone_name"},
			{"City", "city_name"},
			{"Total Employees", "total_employees"},
			{"Present", "present"},
		},
	},
	"supervisor_summary": {
		suffix: "supervisor-summary",
		// Rooted at users so supervisors with zero attendance still appear.
		selectFor: func(string) string {
			return `SELECT u.id AS supervisor_id,
u.name AS supervisor_name,
c.id AS city_id,
c.name AS city_name,
COUNT(DISTINCT e.emp_id) AS total_employees,
COUNT(DISTINCT a.emp_id) AS present_yesterday`
		},
		from: `FROM users u
JOIN supervisor_wards sw ON sw.supervisor_id = u.id
JOIN wards w ON w.id = sw.ward_id
JOIN zones z ON z.id = w.zone_id
JOIN cities c ON c.id = z.city_id
LEFT JOIN employees e ON e.ward_id = w.id
LEFT JOIN attendance a ON a.emp_id = e.emp_id AND a.punch_in_time IS NOT NULL AND a.date = %YESTERDAY%`,
		groupBy:          "GROUP BY u.id, u.name, c.id, c.name",
		orderBy:          "ORDER BY u.name ASC",
		supervisorJoined: true,
		columns: []Column{
			{"Supervisor ID", "supervisor_id"},
			{"Supervisor", "supervisor_name"},
			{"City ID", "city_id"},
			{"City", "city_name"},
			{"Total Employees", "total_employees"},
			{"Present Yesterday", "present_yesterday"},
		},
	},
}

// GroupNames lists the supported group_by values.
func GroupNames() []string {
	return []string{"detail", "zone", "ward", "city", "supervisor", "location", "ward_summary", "supervisor_summary"}
}

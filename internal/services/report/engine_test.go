package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apricityDigital/attendease-backend/internal/db/bunx"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// reportSchema is the minimal slice of the schema the report joins touch.
var reportSchema = []string{
	`CREATE TABLE cities (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE zones (id INTEGER PRIMARY KEY, city_id INTEGER NOT NULL, name TEXT NOT NULL)`,
	`CREATE TABLE wards (id INTEGER PRIMARY KEY, zone_id INTEGER NOT NULL, name TEXT NOT NULL)`,
	`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE supervisor_wards (supervisor_id INTEGER NOT NULL, ward_id INTEGER NOT NULL)`,
	`CREATE TABLE employees (emp_id INTEGER PRIMARY KEY, emp_code TEXT NOT NULL, name TEXT NOT NULL, ward_id INTEGER NOT NULL)`,
	`CREATE TABLE attendance (
		attendance_id INTEGER PRIMARY KEY,
		emp_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		ward_id INTEGER NOT NULL,
		punch_in_time TIMESTAMP,
		punch_out_time TIMESTAMP,
		duration_mins INTEGER,
		in_address TEXT,
		out_address TEXT
	)`,
}

var reportFixtures = []string{
	`INSERT INTO cities (id, name) VALUES (1, 'Indore'), (2, 'Bhopal')`,
	`INSERT INTO zones (id, city_id, name) VALUES (1, 1, 'Zone A'), (2, 2, 'Zone B')`,
	`INSERT INTO wards (id, zone_id, name) VALUES (1, 1, 'Ward 1'), (2, 2, 'Ward 2')`,
	`INSERT INTO users (id, name) VALUES (10, 'Sup One'), (11, 'Sup Two')`,
	// Ward 1 has two supervisors so the rollups must not double count it.
	`INSERT INTO supervisor_wards (supervisor_id, ward_id) VALUES (10, 1), (11, 2), (11, 1)`,
	`INSERT INTO employees (emp_id, emp_code, name, ward_id) VALUES
		(100, 'EMP-100', 'Asha Verma', 1),
		(101, 'EMP-101', 'Binu Thomas', 2),
		(102, 'EMP-102', 'Chirag Patel', 1)`,
	`INSERT INTO attendance (attendance_id, emp_id, date, ward_id, punch_in_time, punch_out_time, duration_mins, in_address, out_address) VALUES
		(1, 100, '2024-06-14', 1, '2024-06-14 09:00:00', '2024-06-14 17:30:00', 510, 'Palasia Square', 'Palasia Square'),
		(2, 101, '2024-06-14', 2, '2024-06-14 10:00:00', NULL, NULL, NULL, '   ')`,
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	for _, stmt := range append(append([]string{}, reportSchema...), reportFixtures...) {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return NewEngine(db)
}

func allCities() authz.CityScope { return authz.CityScope{All: true} }

func TestRun(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	t.Run("unknown group_by rejected with alternatives", func(t *testing.T) {
		_, err := engine.Run(ctx, "galaxy", LocationBoth, Filters{}, allCities())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "supervisor_summary")
	})

	t.Run("detail returns every row in scope", func(t *testing.T) {
		rep, err := engine.Run(ctx, "detail", LocationBoth, Filters{}, allCities())
		require.NoError(t, err)
		assert.Equal(t, 2, rep.Count)
		require.Len(t, rep.Data, 2)

		names := []any{rep.Data[0]["employee_name"], rep.Data[1]["employee_name"]}
		assert.ElementsMatch(t, []any{"Asha Verma", "Binu Thomas"}, names)
	})

	t.Run("multi supervisor ward does not repeat rows", func(t *testing.T) {
		rep, err := engine.Run(ctx, "detail", LocationBoth, Filters{WardID: ptr(int64(1))}, allCities())
		require.NoError(t, err)
		require.Equal(t, 1, rep.Count)
		assert.Equal(t, "Sup One", rep.Data[0]["supervisor_name"])

		rep, err = engine.Run(ctx, "ward", LocationBoth, Filters{WardID: ptr(int64(1))}, allCities())
		require.NoError(t, err)
		require.Equal(t, 1, rep.Count)
		assert.EqualValues(t, 1, rep.Data[0]["total_records"])
		assert.EqualValues(t, 1, rep.Data[0]["punched_in"])
		assert.EqualValues(t, 1, rep.Data[0]["completed"])
	})

	t.Run("supervisor filter follows ward assignment", func(t *testing.T) {
		rep, err := engine.Run(ctx, "detail", LocationBoth, Filters{SupervisorID: ptr(int64(11))}, allCities())
		require.NoError(t, err)
		assert.Equal(t, 2, rep.Count)

		rep, err = engine.Run(ctx, "detail", LocationBoth, Filters{SupervisorID: ptr(int64(10))}, allCities())
		require.NoError(t, err)
		require.Equal(t, 1, rep.Count)
		assert.Equal(t, "Asha Verma", rep.Data[0]["employee_name"])
	})

	t.Run("supervisor rollup counts per supervisor and city", func(t *testing.T) {
		rep, err := engine.Run(ctx, "supervisor", LocationBoth, Filters{}, allCities())
		require.NoError(t, err)
		// Sup One in Indore, Sup Two in both cities.
		require.Equal(t, 3, rep.Count)
		for _, row := range rep.Data {
			assert.EqualValues(t, 1, row["total_records"], row["supervisor_name"])
		}
	})

	t.Run("scope narrows to granted cities", func(t *testing.T) {
		rep, err := engine.Run(ctx, "detail", LocationBoth, Filters{}, authz.CityScope{Cities: []int64{1}})
		require.NoError(t, err)
		require.Equal(t, 1, rep.Count)
		assert.Equal(t, "Asha Verma", rep.Data[0]["employee_name"])
	})

	t.Run("empty scope yields zero rows not an error", func(t *testing.T) {
		rep, err := engine.Run(ctx, "detail", LocationBoth, Filters{}, authz.CityScope{})
		require.NoError(t, err)
		assert.Equal(t, 0, rep.Count)
		assert.NotNil(t, rep.Data)
	})

	t.Run("search matches name case insensitively", func(t *testing.T) {
		rep, err := engine.Run(ctx, "detail", LocationBoth, Filters{Search: "ASHA"}, allCities())
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Count)
	})

	t.Run("open records filtered by has_punch_out", func(t *testing.T) {
		open := false
		rep, err := engine.Run(ctx, "detail", LocationBoth, Filters{HasPunchOut: &open}, allCities())
		require.NoError(t, err)
		require.Equal(t, 1, rep.Count)
		assert.Equal(t, "Binu Thomas", rep.Data[0]["employee_name"])
	})

	t.Run("blank addresses collapse to unknown location", func(t *testing.T) {
		rep, err := engine.Run(ctx, "location", LocationBoth, Filters{EmployeeID: ptr(int64(101))}, allCities())
		require.NoError(t, err)
		require.Equal(t, 1, rep.Count)
		assert.Equal(t, "Unknown Location", rep.Data[0]["location"])
	})

	t.Run("city rollup counts punches", func(t *testing.T) {
		rep, err := engine.Run(ctx, "city", LocationBoth, Filters{}, allCities())
		require.NoError(t, err)
		require.Equal(t, 2, rep.Count)

		byCity := map[any]map[string]any{}
		for _, row := range rep.Data {
			byCity[row["city_name"]] = row
		}
		assert.EqualValues(t, 1, byCity["Indore"]["total_records"])
		assert.EqualValues(t, 1, byCity["Indore"]["punched_in"])
		assert.EqualValues(t, 1, byCity["Indore"]["completed"])
		assert.EqualValues(t, 1, byCity["Bhopal"]["punched_in"])
		assert.EqualValues(t, 0, byCity["Bhopal"]["completed"])
	})

	t.Run("ward summary counts registered versus present", func(t *testing.T) {
		rep, err := engine.Run(ctx, "ward_summary", LocationBoth, Filters{WardID: ptr(int64(1))}, allCities())
		require.NoError(t, err)
		require.Equal(t, 1, rep.Count)
		assert.EqualValues(t, 2, rep.Data[0]["total_employees"])
		assert.EqualValues(t, 1, rep.Data[0]["present"])
	})

	t.Run("supervisor summary keeps supervisors with no punches", func(t *testing.T) {
		rep, err := engine.Run(ctx, "supervisor_summary", LocationBoth, Filters{}, allCities())
		require.NoError(t, err)
		// One row per supervisor and city: Sup Two supervises wards in both.
		require.Equal(t, 3, rep.Count)
		for _, row := range rep.Data {
			assert.EqualValues(t, 0, row["present_yesterday"])
		}
	})

	t.Run("absentees_only keeps wards with missing employees", func(t *testing.T) {
		rep, err := engine.Run(ctx, "supervisor_summary", LocationBoth, Filters{AbsenteesOnly: true}, allCities())
		require.NoError(t, err)
		// No punches yesterday, so every supervisor has absentees.
		assert.Equal(t, 3, rep.Count)
	})
}

func TestShortReport(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	t.Run("tallies registered versus present per ward", func(t *testing.T) {
		rows, err := engine.ShortReport(ctx, "", "", "2024-06-14", allCities())
		require.NoError(t, err)
		require.Len(t, rows, 2)

		byWard := map[string]ShortReportRow{}
		for _, row := range rows {
			byWard[row.WardName] = row
		}
		assert.EqualValues(t, 2, byWard["Ward 1"].Registered)
		assert.EqualValues(t, 1, byWard["Ward 1"].Present)
		assert.EqualValues(t, 1, byWard["Ward 2"].Registered)
		assert.EqualValues(t, 1, byWard["Ward 2"].Present)
	})

	t.Run("city name narrows the tally", func(t *testing.T) {
		rows, err := engine.ShortReport(ctx, "indore", "", "2024-06-14", allCities())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Ward 1", rows[0].WardName)
	})

	t.Run("empty scope returns nothing", func(t *testing.T) {
		rows, err := engine.ShortReport(ctx, "", "", "2024-06-14", authz.CityScope{})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestFilename(t *testing.T) {
	rep := &Report{suffix: "detail"}
	at := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "attendance-detail-report-2024-06-15T10-30-00Z.csv", rep.Filename(at))
}

func ptr[T any](v T) *T { return &v }

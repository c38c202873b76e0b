package models

import (
	"time"

	"github.com/uptrace/bun"
)

// City is the top of the location hierarchy.
type City struct {
	bun.BaseModel `bun:"table:cities,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Zone belongs to a city.
type Zone struct {
	bun.BaseModel `bun:"table:zones,alias:z"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	CityID    int64     `bun:"city_id,notnull"` // FK to cities(id)
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Ward belongs to a zone; employees and attendance rows hang off wards.
type Ward struct {
	bun.BaseModel `bun:"table:wards,alias:w"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	ZoneID    int64     `bun:"zone_id,notnull"` // FK to zones(id)
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Department is master data referenced by users.
type Department struct {
	bun.BaseModel `bun:"table:departments,alias:dep"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// Designation is master data referenced by employees.
type Designation struct {
	bun.BaseModel `bun:"table:designations,alias:des"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// SupervisorWard assigns a supervisor user to a ward.
type SupervisorWard struct {
	bun.BaseModel `bun:"table:supervisor_wards,alias:sw"`

	AssignedID   int64 `bun:"assigned_id,pk,autoincrement"`
	SupervisorID int64 `bun:"supervisor_id,notnull"` // FK to users(id)
	WardID       int64 `bun:"ward_id,notnull"`       // FK to wards(id)
}

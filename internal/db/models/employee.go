package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Employee is a field worker whose attendance is recorded.
//
// FaceEmbeddingRef is the object-store key of the enrolled reference image;
// FaceID is the gallery identifier returned by the face service at
// enrolment. Both are set together and cleared together when enrolment is
// deleted.
type Employee struct {
	bun.BaseModel `bun:"table:employees,alias:e"`

	EmpID            int64     `bun:"emp_id,pk,autoincrement"`
	EmpCode          string    `bun:"emp_code,notnull,unique"`
	Name             string    `bun:"name,notnull"`
	Phone            *string   `bun:"phone"`
	WardID           int64     `bun:"ward_id,notnull"` // FK to wards(id)
	DesignationID    *int64    `bun:"designation_id"`  // FK to designations(id)
	FaceEmbeddingRef *string   `bun:"face_embedding_ref"`
	FaceID           *string   `bun:"face_id"`
	FaceConfidence   *float64  `bun:"face_confidence"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Enrolled reports whether the employee has a usable face enrolment.
func (e *Employee) Enrolled() bool {
	return e != nil && e.FaceEmbeddingRef != nil && *e.FaceEmbeddingRef != ""
}

package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
)

// BunLocationRepository implements LocationRepository using Bun ORM.
// Passing a nil or empty cityIDs/zoneIDs slice means unscoped (all rows);
// handlers pass the caller's resolved scope.
type BunLocationRepository struct {
	db *bun.DB
}

// NewBunLocationRepository creates a new Bun-based location repository
func NewBunLocationRepository(db *bun.DB) *BunLocationRepository {
	return &BunLocationRepository{db: db}
}

// ListCities retrieves cities, optionally restricted to the given IDs
func (r *BunLocationRepository) ListCities(ctx context.Context, cityIDs []int64) ([]models.City, error) {
	var cities []models.City
	q := r.db.NewSelect().
		Model(&cities).
		Order("name ASC")
	if len(cityIDs) > 0 {
		q = q.Where("id IN (?)", bun.In(cityIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// ListZones retrieves zones, optionally restricted to the given city IDs
func (r *BunLocationRepository) ListZones(ctx context.Context, cityIDs []int64) ([]models.Zone, error) {
	var zones []models.Zone
	q := r.db.NewSelect().
		Model(&zones).
		Order("name ASC")
	if len(cityIDs) > 0 {
		q = q.Where("city_id IN (?)", bun.In(cityIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return zones, nil
}

// ListWards retrieves wards, optionally restricted to the given zone IDs
func (r *BunLocationRepository) ListWards(ctx context.Context, zoneIDs []int64) ([]models.Ward, error) {
	var wards []models.Ward
	q := r.db.NewSelect().
		Model(&wards).
		Order("name ASC")
	if len(zoneIDs) > 0 {
		q = q.Where("zone_id IN (?)", bun.In(zoneIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list wards: %w", err)
	}
	return wards, nil
}

// ListDepartments retrieves all departments
func (r *BunLocationRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	err := r.db.NewSelect().
		Model(&departments).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// ListDesignations retrieves all designations
func (r *BunLocationRepository) ListDesignations(ctx context.Context) ([]models.Designation, error) {
	var designations []models.Designation
	err := r.db.NewSelect().
		Model(&designations).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list designations: %w", err)
	}
	return designations, nil
}

// ListSupervisorWards retrieves the ward assignments of a supervisor
func (r *BunLocationRepository) ListSupervisorWards(ctx context.Context, supervisorID int64) ([]models.SupervisorWard, error) {
	var assignments []models.SupervisorWard
	err := r.db.NewSelect().
		Model(&assignments).
		Where("supervisor_id = ?", supervisorID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list supervisor wards: %w", err)
	}
	return assignments, nil
}

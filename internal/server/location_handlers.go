package server

import (
	"net/http"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// cityFilter derives the city-ID filter from the caller's scope: nil means
// unrestricted. RequireCityScope has already rejected callers with no city
// access, so a non-nil filter is never empty.
func cityFilter(r *http.Request) []int64 {
	scope, ok := auth.GetCityScope(r.Context())
	if !ok || scope.All {
		return nil
	}
	return scope.Cities
}

// HandleListCities returns the cities visible to the caller.
func HandleListCities(locations repository.LocationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cities, err := locations.ListCities(r.Context(), cityFilter(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cities": cities, "count": len(cities)})
	}
}

// HandleListZones returns zones within the caller's city scope.
func HandleListZones(locations repository.LocationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zones, err := locations.ListZones(r.Context(), cityFilter(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"zones": zones, "count": len(zones)})
	}
}

// HandleListWards returns wards within the caller's city scope, narrowed
// further to the caller's zone grants when those exist.
func HandleListWards(locations repository.LocationRepository, scopes *authz.ScopeResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "no token")
			return
		}

		zones, err := locations.ListZones(r.Context(), cityFilter(r))
		if err != nil {
			respondError(w, r, err)
			return
		}

		zoneScope, err := scopes.ZoneScopeFor(r.Context(), principal.User)
		if err != nil {
			respondError(w, r, err)
			return
		}

		zoneIDs := make([]int64, 0, len(zones))
		for _, zone := range zones {
			if zoneScope.All || len(zoneScope.Zones) == 0 || containsID(zoneScope.Zones, zone.ID) {
				zoneIDs = append(zoneIDs, zone.ID)
			}
		}
		if len(zoneIDs) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"wards": []any{}, "count": 0})
			return
		}

		wards, err := locations.ListWards(r.Context(), zoneIDs)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"wards": wards, "count": len(wards)})
	}
}

// HandleListDepartments returns the department master list.
func HandleListDepartments(locations repository.LocationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		departments, err := locations.ListDepartments(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"departments": departments, "count": len(departments)})
	}
}

// HandleListDesignations returns the designation master list.
func HandleListDesignations(locations repository.LocationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		designations, err := locations.ListDesignations(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"designations": designations, "count": len(designations)})
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

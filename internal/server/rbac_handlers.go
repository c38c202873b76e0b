package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/rbac"
)

// HandleListRoles returns every role.
func HandleListRoles(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := svc.ListRoles(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	}
}

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreateRole creates a custom role.
func HandleCreateRole(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		role, err := svc.CreateRole(r.Context(), req.Name, req.Description)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"role": role})
	}
}

// HandleUpdateRole edits a custom role.
func HandleUpdateRole(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "roleId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req roleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		role, err := svc.UpdateRole(r.Context(), id, req.Name, req.Description)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"role": role})
	}
}

// HandleDeleteRole removes a custom role.
func HandleDeleteRole(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "roleId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := svc.DeleteRole(r.Context(), id); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// HandleListPermissions returns the permission catalogue.
func HandleListPermissions(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms, err := svc.ListPermissions(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
	}
}

type permissionRequest struct {
	Module      string `json:"module"`
	Action      string `json:"action"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// HandleCreatePermission registers a new (module, action) pair.
func HandleCreatePermission(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req permissionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		perm, err := svc.CreatePermission(r.Context(), req.Module, req.Action, req.Label, req.Description)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"permission": perm})
	}
}

// HandleDeletePermission removes a permission.
func HandleDeletePermission(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "permissionId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := svc.DeletePermission(r.Context(), id); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

type rolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

// HandleSetRolePermissions replaces a role's permission set.
func HandleSetRolePermissions(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "roleId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req rolePermissionsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// HandleListUsers returns every user with primary role and access profile.
func HandleListUsers(users repository.UserRepository, svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}

		out := make([]userPayload, 0, len(list))
		for i := range list {
			profile, err := svc.UserAccessProfile(r.Context(), list[i].ID)
			if err != nil {
				respondError(w, r, err)
				return
			}
			out = append(out, buildUserPayload(&list[i], profile))
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": out, "count": len(out)})
	}
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id"`
}

// HandleAssignUserRole attaches a role to a user, audited with the caller.
func HandleAssignUserRole(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req assignRoleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var assignedBy *int64
		if principal, ok := auth.GetPrincipal(r.Context()); ok {
			assignedBy = &principal.UserID
		}
		if err := svc.AssignRole(r.Context(), userID, req.RoleID, assignedBy); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// HandleRemoveUserRole detaches a role from a user.
func HandleRemoveUserRole(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		roleID, err := pathID(r, "roleId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := svc.RemoveRole(r.Context(), userID, roleID); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

type userAccessRequest struct {
	Permissions []struct {
		PermissionID int64  `json:"permission_id"`
		CityID       *int64 `json:"city_id"`
	} `json:"permissions"`
	CityIDs []int64 `json:"city_ids"`
	ZoneIDs []int64 `json:"zone_ids"`
}

// HandleReplaceUserAccess swaps a user's direct permissions and city/zone
// access in one transaction.
func HandleReplaceUserAccess(svc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req userAccessRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		perms := make([]models.UserPermission, 0, len(req.Permissions))
		for _, p := range req.Permissions {
			perms = append(perms, models.UserPermission{
				UserID:       userID,
				PermissionID: p.PermissionID,
				CityID:       p.CityID,
			})
		}
		update := rbac.AccessUpdate{Permissions: perms, CityIDs: req.CityIDs, ZoneIDs: req.ZoneIDs}
		if err := svc.ReplaceUserAccess(r.Context(), userID, update); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", param, raw)
	}
	return id, nil
}

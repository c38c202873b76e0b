package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/rbac"
)

type loginRequest struct {
	Email    string `json:"email"`
	EmpCode  string `json:"emp_code"`
	Password string `json:"password"`
}

type userPayload struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Email       *string `json:"email,omitempty"`
	EmpCode     *string `json:"emp_code,omitempty"`
	PrimaryRole string  `json:"primary_role"`

	*rbac.AccessProfile
}

// HandleLogin authenticates by email and password, sets the session cookie,
// and returns the token with the user's access profile.
func HandleLogin(users repository.UserRepository, tokens *auth.TokenIssuer, rbacSvc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			respondLoginFailure(w, r, err)
			return
		}
		completeLogin(w, r, user, req.Password, users, tokens, rbacSvc)
	}
}

// HandleSupervisorLogin authenticates a supervisor by employee code.
func HandleSupervisorLogin(users repository.UserRepository, tokens *auth.TokenIssuer, rbacSvc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.EmpCode = strings.TrimSpace(req.EmpCode)
		if req.EmpCode == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "emp_code and password are required")
			return
		}

		user, err := users.GetByEmpCode(r.Context(), req.EmpCode)
		if err != nil {
			respondLoginFailure(w, r, err)
			return
		}
		if user.PrimaryRole != models.PrimaryRoleSupervisor && !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "not a supervisor account")
			return
		}
		completeLogin(w, r, user, req.Password, users, tokens, rbacSvc)
	}
}

func completeLogin(w http.ResponseWriter, r *http.Request, user *models.User, password string, users repository.UserRepository, tokens *auth.TokenIssuer, rbacSvc *rbac.Service) {
	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := tokens.Issue(user.ID, user.PrimaryRole)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := users.UpdateLastLogin(r.Context(), user.ID); err != nil {
		log.Printf("auth: update last login for user %d: %v", user.ID, err)
	}

	profile, err := rbacSvc.UserAccessProfile(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	auth.SetTokenCookie(w, r, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  buildUserPayload(user, profile),
	})
}

func respondLoginFailure(w http.ResponseWriter, r *http.Request, err error) {
	// Do not reveal whether the account exists.
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	respondError(w, r, err)
}

// HandleMe returns the authenticated user's profile with roles and
// effective permissions.
func HandleMe(rbacSvc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "no token")
			return
		}

		profile, err := rbacSvc.UserAccessProfile(r.Context(), principal.UserID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": buildUserPayload(principal.User, profile)})
	}
}

// HandleLogout clears the session cookie.
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.ClearTokenCookie(w, r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func buildUserPayload(user *models.User, profile *rbac.AccessProfile) userPayload {
	return userPayload{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmpCode:       user.EmpCode,
		PrimaryRole:   user.PrimaryRole,
		AccessProfile: profile,
	}
}

package controllers

import (
	"net/http"

	"coahub/app/services"
)

// AuthController handles signup, login and profile updates
type AuthController struct {
	authService *services.AuthService
}

// NewAuthController creates a new auth controller
func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for a session token.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := ac.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

// Signup registers an identity and signs it in.
func (ac *AuthController) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := ac.authService.Signup(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, res)
}

// UpdateProfile changes the caller's username, email or avatar.
func (ac *AuthController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	var req services.ProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := ac.authService.UpdateProfile(r.Context(), caller, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

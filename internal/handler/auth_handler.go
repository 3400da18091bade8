package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"clinic-dashboard/internal/auth"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type doctorResponse struct {
	Status string `json:"status"`
	Doctor any    `json:"doctor"`
}

func (h *Handler) login(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password required")
			return
		}

		acct, err := h.store.AccountByEmail(r.Context(), role, req.Email)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				h.logger.Error("account lookup failed", zap.String("role", role), zap.Error(err))
			}
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if !auth.CheckPassword(acct.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		tok, err := auth.MakeToken(acct.ID, role, h.secret, h.tokenTTL)
		if err != nil {
			h.logger.Error("token signing failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{Token: tok})
	}
}

// doctorIdentity answers who the token's doctor is.
func (h *Handler) doctorIdentity(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenForRole(pathParam(r, "token"), h.secret, model.RoleDoctor)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	doc, err := h.store.DoctorByID(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	}
	if err != nil {
		h.logger.Error("doctor lookup failed", zap.Int64("doctor_id", claims.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, doctorResponse{Status: "success", Doctor: doc})
}

package handlers

import (
	"net/http"

	"vatelanka-driver/internal/middleware"
	"vatelanka-driver/internal/models"
	"vatelanka-driver/pkg/utils"

	"go.uber.org/zap"
)

type LoginRequest struct {
	TruckID  string `json:"truckId"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Session *models.Session `json:"session"`
}

func Login(d Driver, jwt *middleware.JWTAuth, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.TruckID == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "Please enter both truck ID and password")
			return
		}

		log.Info("🔐 Login attempt", zap.String("truck_id", req.TruckID))

		s, err := d.Login(r.Context(), req.TruckID, req.Password)
		if err != nil {
			log.Warn("❌ Login failed", zap.String("truck_id", req.TruckID), zap.Error(err))
			respondErr(w, err)
			return
		}

		token, err := jwt.Issue(middleware.UserClaims{
			UserID:  s.UID,
			Email:   s.Email,
			TruckID: s.Profile.TruckID,
			Role:    middleware.RoleDriver,
		})
		if err != nil {
			log.Error("❌ Failed to issue token", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		log.Info("✅ Login successful", zap.String("truck_id", s.Profile.TruckID))
		utils.RespondSuccess(w, LoginResponse{Token: token, Session: s}, "Login successful")
	}
}

func Logout(d Driver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := currentSession(d, r); err != nil {
			respondErr(w, err)
			return
		}
		if err := d.Logout(r.Context()); err != nil {
			log.Error("❌ Logout failed", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Failed to logout. Please try again.")
			return
		}
		utils.RespondSuccess(w, nil, "Logged out")
	}
}

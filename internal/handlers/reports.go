package handlers

import (
	"net/http"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/pkg/utils"

	"go.uber.org/zap"
)

type createReportRequest struct {
	Date        string `json:"date"`
	Area        string `json:"area"`
	Description string `json:"description"`
}

func reportsUnavailable(w http.ResponseWriter) {
	utils.RespondError(w, http.StatusServiceUnavailable, "Daily reports are not available")
}

func ListDailyReports(d Driver, reports ReportStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := currentSession(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}
		if reports == nil {
			reportsUnavailable(w)
			return
		}
		list, err := reports.DailyReports(r.Context(), s.Profile.TruckID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load reports")
			return
		}
		utils.RespondSuccess(w, list, "")
	}
}

func CreateDailyReport(d Driver, reports ReportStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := currentSession(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}
		if reports == nil {
			reportsUnavailable(w)
			return
		}

		var req createReportRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		report, err := reports.CreateDailyReport(r.Context(), models.DailyReport{
			TruckID:     s.Profile.TruckID,
			ReportDate:  req.Date,
			Area:        req.Area,
			Description: req.Description,
		})
		if err != nil {
			if statusFor(err) == http.StatusBadRequest {
				respondErr(w, err)
				return
			}
			log.Error("❌ Failed to save daily report", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Failed to submit report")
			return
		}

		log.Info("📝 Daily report submitted", zap.String("truck_id", s.Profile.TruckID), zap.String("date", report.ReportDate))
		utils.RespondSuccess(w, report, "Report submitted successfully")
	}
}

package handlers

import (
	"net/http"

	"vatelanka-driver/internal/tracking"
	"vatelanka-driver/pkg/utils"
)

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}
}

type appStateResponse struct {
	Loading         bool               `json:"loading"`
	SignedIn        bool               `json:"signedIn"`
	TruckID         string             `json:"truckId,omitempty"`
	DriverName      string             `json:"driverName,omitempty"`
	Route           *tracking.Snapshot `json:"route,omitempty"`
	DeviceConnected bool               `json:"deviceConnected"`
}

// AppState reports whether the agent is still bootstrapping and who is signed in
func AppState(state SessionState, d Driver, device DeviceStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := state.State()
		resp := appStateResponse{
			Loading:         st.Loading,
			SignedIn:        st.Session != nil,
			DeviceConnected: device.DeviceConnected(),
		}
		if st.Session != nil {
			resp.TruckID = st.Session.Profile.TruckID
			resp.DriverName = st.Session.Profile.DriverName
		}
		if m, err := d.Manager(); err == nil {
			snap := m.Status()
			resp.Route = &snap
		}
		utils.RespondSuccess(w, resp, "")
	}
}

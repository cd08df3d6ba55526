package models

import "fmt"

// TruckIdentity is the composite key of a truck document
type TruckIdentity struct {
	MunicipalCouncil string `json:"municipalCouncil" firestore:"municipalCouncil"`
	District         string `json:"district" firestore:"district"`
	Ward             string `json:"ward" firestore:"ward"`
	SupervisorID     string `json:"supervisorId" firestore:"supervisorId"`
	TruckID          string `json:"truckId" firestore:"truckId"`
}

// Complete returns true if all five identity fields are set
func (t TruckIdentity) Complete() bool {
	return t.MunicipalCouncil != "" &&
		t.District != "" &&
		t.Ward != "" &&
		t.SupervisorID != "" &&
		t.TruckID != ""
}

// DocumentPath returns the Firestore path of the truck document.
// Callers must check Complete first.
func (t TruckIdentity) DocumentPath() string {
	return fmt.Sprintf(
		"municipalCouncils/%s/Districts/%s/Wards/%s/supervisors/%s/trucks/%s",
		t.MunicipalCouncil, t.District, t.Ward, t.SupervisorID, t.TruckID,
	)
}

// WardPath returns the path of the ward that owns the truck's tickets
func (t TruckIdentity) WardPath() string {
	return fmt.Sprintf("municipalCouncils/%s/Districts/%s/Wards/%s",
		t.MunicipalCouncil, t.District, t.Ward)
}

// SupervisorTopic is the FCM topic a supervisor's console subscribes to
func (t TruckIdentity) SupervisorTopic() string {
	return fmt.Sprintf("supervisor_%s", t.SupervisorID)
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type AppointmentView struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     string    `json:"doctor_id"`
	DoctorName   string    `json:"doctor_name"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	PatientName  string    `json:"patient_name"`
	PatientPhone string    `json:"patient_phone"`
	Status       string    `json:"status"`
}

type TodayResponse struct {
	Date         string            `json:"date"`
	Appointments []AppointmentView `json:"appointments"`
}

type StatsResponse struct {
	TodayCount    int `json:"today_count"`
	UpcomingCount int `json:"upcoming_count"`
	DoctorCount   int `json:"doctor_count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

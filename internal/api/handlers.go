package api

import (
	"net/http"
	"time"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
)

func todayAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := catalog.DateOnly(time.Now())

		appts, err := svc.ListConfirmedForDate(r.Context(), today)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
			return
		}

		views := make([]AppointmentView, 0, len(appts))
		for _, a := range appts {
			views = append(views, AppointmentView{
				ID:           a.ID,
				DoctorID:     a.DoctorID,
				DoctorName:   a.DoctorName,
				Date:         a.Date.Format(catalog.DateLayout),
				Time:         a.Time,
				PatientName:  a.PatientName,
				PatientPhone: a.PatientPhone,
				Status:       string(a.Status),
			})
		}

		writeJSON(w, http.StatusOK, TodayResponse{
			Date:         today.Format(catalog.DateLayout),
			Appointments: views,
		})
	}
}

func statsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := catalog.DateOnly(time.Now())

		todayAppts, err := svc.ListConfirmedForDate(r.Context(), today)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
			return
		}

		upcoming, err := svc.CountConfirmedSince(r.Context(), today)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, StatsResponse{
			TodayCount:    len(todayAppts),
			UpcomingCount: upcoming,
			DoctorCount:   len(catalog.Doctors()),
		})
	}
}

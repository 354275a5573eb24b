package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the read routes and, behind edit mode and Basic Auth, the
// edit routes.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.GetConfig)
		r.Get("/state", s.HandleState)
		r.Get("/export", s.HandleExport)
		r.Get("/share", s.HandleShare)
		r.Get("/history", s.HandleHistory)
		r.Get("/years/{year}/months/{month}", s.HandleMonth)
		r.Get("/years/{year}/months/{month}/options", s.HandleOptions)
		r.Get("/years/{year}/counts", s.HandleCounts)
		r.Get("/years/{year}/counts.csv", s.HandleCountsCSV)
		r.Get("/members/{index}/absences.ics", s.HandleAbsencesICS)

		r.Group(func(er chi.Router) {
			er.Use(s.RequireEditMode)
			er.Use(s.auth.RequireAuth)

			er.Post("/members", s.AddMember)
			er.Put("/members/{index}", s.RenameMember)
			er.Delete("/members/{index}", s.DeleteMember)
			er.Put("/years/{year}/vacation-days/{index}", s.SetVacationDays)
			er.Post("/years/{year}/months/{month}/selection", s.ApplySelection)
			er.Post("/years/{year}/months/{month}/approval", s.ToggleApproval)
			er.Post("/import", s.HandleImport)
			er.Post("/share/import", s.HandleShareImport)
			er.Post("/undo", s.HandleUndo)
			er.Post("/redo", s.HandleRedo)
			er.Put("/school-holidays/state", s.SetSchoolHolidayState)
		})
	})

	return r
}

// RequireEditMode rejects requests unless the server runs in edit mode.
func (s *Server) RequireEditMode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Edit {
			http.Error(w, ErrEditModeDisabled, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package internal

import (
	"net/http"

	"asms-api/internal/httperr"
)

// departments lists the distinct departments found on assets.
// There is no department table, so every write method is refused.
func (s *Server) departments(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodGet:
		return s.listDepartments(w, r)
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return httperr.MethodNotAllowed("Departments are managed automatically from asset data")
	default:
		return httperr.MethodNotAllowed("")
	}
}

func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) error {
	rows, err := s.DB.Query(r.Context(), `
		SELECT DISTINCT TRIM(department)
		FROM asset
		WHERE department IS NOT NULL AND TRIM(department) <> ''
		ORDER BY 1`)
	if err != nil {
		return httperr.Database(err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return httperr.Database(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return httperr.Database(err)
	}

	return httperr.WriteJSON(w, http.StatusOK, out)
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"asms-api/internal/httperr"
	"asms-api/internal/models"
)

const uniqueViolation = "23505"

func scanCategory(row rowScanner) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description)
	return c, err
}

// categories dispatches /api/categories, /api/categories?id= and /api/categories/{id}
func (s *Server) categories(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodGet:
		id, ok, err := queryID(r)
		if err != nil {
			return err
		}
		if ok {
			return s.getCategory(w, r, id)
		}
		return s.listCategories(w, r)
	case http.MethodPost:
		return s.createCategory(w, r)
	case http.MethodPut, http.MethodPatch:
		return s.updateCategory(w, r)
	case http.MethodDelete:
		return s.deleteCategory(w, r)
	default:
		return httperr.MethodNotAllowed("")
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) error {
	rows, err := s.DB.Query(r.Context(), "SELECT id, name, description FROM category ORDER BY name")
	if err != nil {
		return httperr.Database(err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return httperr.Database(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return httperr.Database(err)
	}

	return httperr.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request, id int64) error {
	c, err := scanCategory(s.DB.QueryRow(r.Context(), "SELECT id, name, description FROM category WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return httperr.NotFound("Category not found")
	}
	if err != nil {
		return httperr.Database(err)
	}
	return httperr.WriteJSON(w, http.StatusOK, c)
}

// categoryName returns the trimmed name from the body or the
// "Category name is required" error
func categoryName(in models.CategoryRequest) (string, error) {
	if in.Name == nil {
		return "", httperr.BadRequest("Category name is required")
	}
	name := strings.TrimSpace(*in.Name)
	if name == "" {
		return "", httperr.BadRequest("Category name is required")
	}
	return name, nil
}

// nameTaken reports whether another category already uses name.
// excludeID is ignored when zero.
func (s *Server) nameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	sqlStr := "SELECT id FROM category WHERE name = $1"
	args := []interface{}{name}
	if excludeID > 0 {
		sqlStr += " AND id <> $2"
		args = append(args, excludeID)
	}

	var found int64
	err := s.DB.QueryRow(ctx, sqlStr, args...).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// categoryWriteError maps a failed INSERT/UPDATE, turning a lost race on
// the unique name constraint into the same error as the pre-check
func categoryWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return httperr.BadRequest("Category name already exists")
	}
	return httperr.Database(err)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) error {
	var in models.CategoryRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	name, err := categoryName(in)
	if err != nil {
		return err
	}

	ctx := r.Context()
	taken, err := s.nameTaken(ctx, name, 0)
	if err != nil {
		return httperr.Database(err)
	}
	if taken {
		return httperr.BadRequest("Category name already exists")
	}

	created, err := scanCategory(s.DB.QueryRow(ctx,
		"INSERT INTO category (name, description) VALUES ($1, $2) RETURNING id, name, description",
		name, in.Description))
	if err != nil {
		return categoryWriteError(err)
	}

	return httperr.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) error {
	id, ok, err := queryID(r)
	if err != nil {
		return err
	}
	if !ok {
		return httperr.BadRequest("Category ID required")
	}

	var in models.CategoryRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	name, err := categoryName(in)
	if err != nil {
		return err
	}

	ctx := r.Context()
	exists, err := s.categoryExists(ctx, id)
	if err != nil {
		return httperr.Database(err)
	}
	if !exists {
		return httperr.NotFound("Category not found")
	}

	taken, err := s.nameTaken(ctx, name, id)
	if err != nil {
		return httperr.Database(err)
	}
	if taken {
		return httperr.BadRequest("Category name already exists")
	}

	updated, err := scanCategory(s.DB.QueryRow(ctx,
		"UPDATE category SET name = $1, description = $2 WHERE id = $3 RETURNING id, name, description",
		name, in.Description, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return httperr.NotFound("Category not found")
	}
	if err != nil {
		return categoryWriteError(err)
	}

	return httperr.WriteJSON(w, http.StatusOK, updated)
}

// deleteCategory refuses to remove a category that assets still reference
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) error {
	id, ok, err := queryID(r)
	if err != nil {
		return err
	}
	if !ok {
		return httperr.BadRequest("Category ID required")
	}

	ctx := r.Context()
	exists, err := s.categoryExists(ctx, id)
	if err != nil {
		return httperr.Database(err)
	}
	if !exists {
		return httperr.NotFound("Category not found")
	}

	var count int64
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM asset WHERE category_id = $1", id).Scan(&count); err != nil {
		return httperr.Database(err)
	}
	if count > 0 {
		return httperr.Conflict("Cannot delete category", fmt.Sprintf("Category is used by %d asset(s)", count))
	}

	if _, err := s.DB.Exec(ctx, "DELETE FROM category WHERE id = $1", id); err != nil {
		return httperr.Database(err)
	}

	return httperr.WriteJSON(w, http.StatusOK, messageResponse{Message: "Category deleted successfully"})
}

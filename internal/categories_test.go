package internal

import (
	"errors"
	"net/http"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryColumns = []string{"id", "name", "description"}

func (s *ServerTestSuite) expectNameFree(name string, args ...interface{}) {
	s.mock.ExpectQuery(`SELECT id FROM category WHERE name = \$1`).
		WithArgs(append([]interface{}{name}, args...)...).
		WillReturnError(pgx.ErrNoRows)
}

func (s *ServerTestSuite) TestListCategories() {
	s.mock.ExpectQuery(`SELECT id, name, description FROM category ORDER BY name`).
		WillReturnRows(pgxmock.NewRows(categoryColumns).
			AddRow(int64(2), "Computers", ptr("Laptops and desktops")).
			AddRow(int64(1), "Furniture", nil))

	w := s.do(http.MethodGet, "/api/categories", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	list := s.list(w)
	require.Len(s.T(), list, 2)
	assert.Equal(s.T(), "Computers", list[0].(map[string]interface{})["name"])
	assert.Nil(s.T(), list[1].(map[string]interface{})["description"])
}

func (s *ServerTestSuite) TestGetCategory() {
	s.mock.ExpectQuery(`SELECT id, name, description FROM category WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(categoryColumns).AddRow(int64(2), "Computers", nil))

	w := s.do(http.MethodGet, "/api/categories?id=2", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "Computers", s.object(w)["name"])
}

func (s *ServerTestSuite) TestGetCategory_NotFound() {
	s.mock.ExpectQuery(`FROM category WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	w := s.do(http.MethodGet, "/api/categories/9", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.Equal(s.T(), "Category not found", s.object(w)["error"])
}

func (s *ServerTestSuite) TestCreateCategory() {
	s.expectNameFree("Laptops")
	s.mock.ExpectQuery(`INSERT INTO category \(name, description\) VALUES \(\$1, \$2\) RETURNING id, name, description`).
		WithArgs("Laptops", ptr("Portable computers")).
		WillReturnRows(pgxmock.NewRows(categoryColumns).AddRow(int64(4), "Laptops", ptr("Portable computers")))

	w := s.do(http.MethodPost, "/api/categories", `{"name":"  Laptops ","description":"Portable computers"}`)
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())
	body := s.object(w)
	assert.Equal(s.T(), float64(4), body["id"])
	assert.Equal(s.T(), "Laptops", body["name"])
	assert.Equal(s.T(), "Portable computers", body["description"])
}

func (s *ServerTestSuite) TestCreateCategory_NameRequired() {
	for _, body := range []string{`{}`, `{"name":"   "}`, `{"name":null}`, `null`} {
		w := s.do(http.MethodPost, "/api/categories", body)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code, body)
		assert.Equal(s.T(), "Category name is required", s.object(w)["error"], body)
	}
}

func (s *ServerTestSuite) TestCreateCategory_Duplicate() {
	s.mock.ExpectQuery(`SELECT id FROM category WHERE name = \$1`).
		WithArgs("Computers").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))

	w := s.do(http.MethodPost, "/api/categories", `{"name":"Computers"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Category name already exists", s.object(w)["error"])
}

func (s *ServerTestSuite) TestCreateCategory_LostRaceOnUniqueName() {
	s.expectNameFree("Computers")
	s.mock.ExpectQuery(`INSERT INTO category`).
		WithArgs("Computers", (*string)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "category_name_key"})

	w := s.do(http.MethodPost, "/api/categories", `{"name":"Computers"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Category name already exists", s.object(w)["error"])
}

func (s *ServerTestSuite) TestUpdateCategory() {
	s.expectCategoryExists(3, true)
	s.expectNameFree("Office Furniture", int64(3))
	s.mock.ExpectQuery(`UPDATE category SET name = \$1, description = \$2 WHERE id = \$3 RETURNING id, name, description`).
		WithArgs("Office Furniture", (*string)(nil), int64(3)).
		WillReturnRows(pgxmock.NewRows(categoryColumns).AddRow(int64(3), "Office Furniture", nil))

	w := s.do(http.MethodPut, "/api/categories/3", `{"name":"Office Furniture"}`)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	body := s.object(w)
	assert.Equal(s.T(), "Office Furniture", body["name"])
	assert.Nil(s.T(), body["description"])
}

func (s *ServerTestSuite) TestUpdateCategory_Rejections() {
	w := s.do(http.MethodPut, "/api/categories", `{"name":"x"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Category ID required", s.object(w)["error"])

	w = s.do(http.MethodPatch, "/api/categories?id=3", `{"description":"only"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Category name is required", s.object(w)["error"])

	s.expectCategoryExists(9, false)
	w = s.do(http.MethodPut, "/api/categories/9", `{"name":"Ghost"}`)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.Equal(s.T(), "Category not found", s.object(w)["error"])

	s.expectCategoryExists(3, true)
	s.mock.ExpectQuery(`SELECT id FROM category WHERE name = \$1 AND id <> \$2`).
		WithArgs("Computers", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	w = s.do(http.MethodPut, "/api/categories/3", `{"name":"Computers"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Category name already exists", s.object(w)["error"])
}

func (s *ServerTestSuite) TestDeleteCategory() {
	s.expectCategoryExists(4, true)
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM asset WHERE category_id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	s.mock.ExpectExec(`DELETE FROM category WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	w := s.do(http.MethodDelete, "/api/categories/4", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "Category deleted successfully", s.object(w)["message"])
}

func (s *ServerTestSuite) TestDeleteCategory_InUse() {
	s.expectCategoryExists(2, true)
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM asset WHERE category_id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	w := s.do(http.MethodDelete, "/api/categories?id=2", "")
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	body := s.object(w)
	assert.Equal(s.T(), "Cannot delete category", body["error"])
	assert.Equal(s.T(), "Category is used by 3 asset(s)", body["message"])
}

func (s *ServerTestSuite) TestDeleteCategory_Rejections() {
	w := s.do(http.MethodDelete, "/api/categories", "")
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Category ID required", s.object(w)["error"])

	s.expectCategoryExists(5, false)
	w = s.do(http.MethodDelete, "/api/categories/5", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	s.mock.ExpectQuery(`SELECT id FROM category WHERE id = \$1`).
		WithArgs(int64(6)).
		WillReturnError(errors.New("timeout"))
	w = s.do(http.MethodDelete, "/api/categories/6", "")
	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	assert.Equal(s.T(), "Database error", s.object(w)["error"])
}

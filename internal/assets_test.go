package internal

import (
	"errors"
	"net/http"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asms-api/internal/models"
)

var assetColumns = []string{
	"id", "name", "category_id", "department", "status", "purchase_date",
	"warranty_expiry", "value", "usage_type", "category_name",
}

func laptopRow(rows *pgxmock.Rows, id int64) *pgxmock.Rows {
	return rows.AddRow(id, "Laptop", ptr(int64(2)), ptr("IT"), "In Use",
		&models.Date{Time: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)},
		nil, decimal.RequireFromString("1200.50"), "General", ptr("Computers"))
}

func (s *ServerTestSuite) expectFetchAsset(id int64) {
	s.mock.ExpectQuery(`FROM asset a LEFT JOIN category c ON a.category_id = c.id WHERE a.id = \$1`).
		WithArgs(id).
		WillReturnRows(laptopRow(pgxmock.NewRows(assetColumns), id))
}

func (s *ServerTestSuite) expectCategoryExists(id int64, found bool) {
	e := s.mock.ExpectQuery(`SELECT id FROM category WHERE id = \$1`).WithArgs(id)
	if found {
		e.WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	} else {
		e.WillReturnError(pgx.ErrNoRows)
	}
}

func (s *ServerTestSuite) TestListAssets() {
	rows := pgxmock.NewRows(assetColumns)
	laptopRow(rows, 7)
	rows.AddRow(int64(3), "Desk", nil, nil, "Retired", nil, nil, decimal.Zero, "General", nil)
	s.mock.ExpectQuery(`SELECT a.id, .* ORDER BY a.id DESC`).WillReturnRows(rows)

	w := s.do(http.MethodGet, "/api/assets", "")
	require.Equal(s.T(), http.StatusOK, w.Code)

	list := s.list(w)
	require.Len(s.T(), list, 2)
	first := list[0].(map[string]interface{})
	assert.Equal(s.T(), float64(7), first["id"])
	assert.Equal(s.T(), "2024-01-15", first["purchase_date"])
	assert.Equal(s.T(), 1200.5, first["value"])
	assert.Equal(s.T(), "Computers", first["category_name"])
	assert.Nil(s.T(), first["warranty_expiry"])

	second := list[1].(map[string]interface{})
	assert.Nil(s.T(), second["category_id"])
	assert.Nil(s.T(), second["category_name"])
	assert.Equal(s.T(), float64(0), second["value"])
}

func (s *ServerTestSuite) TestListAssets_Empty() {
	s.mock.ExpectQuery(`ORDER BY a.id DESC`).WillReturnRows(pgxmock.NewRows(assetColumns))

	w := s.do(http.MethodGet, "/api/assets", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "[]\n", w.Body.String())
}

func (s *ServerTestSuite) TestListAssets_DatabaseError() {
	s.mock.ExpectQuery(`ORDER BY a.id DESC`).WillReturnError(errors.New("relation \"asset\" does not exist"))

	w := s.do(http.MethodGet, "/api/assets", "")
	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	assert.Equal(s.T(), "Database error", s.object(w)["error"])
}

func (s *ServerTestSuite) TestGetAsset() {
	for _, target := range []string{"/api/assets?id=5", "/api/assets/5", "/index.php?route=api/assets/5"} {
		s.expectFetchAsset(5)
		w := s.do(http.MethodGet, target, "")
		require.Equal(s.T(), http.StatusOK, w.Code, target)
		assert.Equal(s.T(), float64(5), s.object(w)["id"], target)
	}
}

func (s *ServerTestSuite) TestGetAsset_NotFound() {
	s.mock.ExpectQuery(`WHERE a.id = \$1`).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

	w := s.do(http.MethodGet, "/api/assets/99", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.Equal(s.T(), "Asset not found", s.object(w)["error"])
}

func (s *ServerTestSuite) TestGetAsset_InvalidID() {
	for _, target := range []string{"/api/assets?id=abc", "/api/assets?id=-4", "/api/assets/0"} {
		w := s.do(http.MethodGet, target, "")
		assert.Equal(s.T(), http.StatusBadRequest, w.Code, target)
		assert.Equal(s.T(), "Invalid ID", s.object(w)["error"], target)
	}
}

func (s *ServerTestSuite) TestCreateAsset_Defaults() {
	s.expectCategoryExists(2, true)
	s.mock.ExpectQuery(`INSERT INTO asset`).
		WithArgs("Laptop", int64(2), "IT", "In Use",
			time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			nil, decimalArg{"0"}, "General").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))
	s.expectFetchAsset(10)

	w := s.do(http.MethodPost, "/api/assets", `{"name":"Laptop","category_id":2,"department":"IT"}`)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	body := s.object(w)
	assert.Equal(s.T(), float64(10), body["id"])
	assert.Equal(s.T(), "Computers", body["category_name"])
}

func (s *ServerTestSuite) TestCreateAsset_AllFields() {
	s.expectCategoryExists(2, true)
	s.mock.ExpectQuery(`INSERT INTO asset`).
		WithArgs("Laptop", int64(2), "IT", "Spare",
			time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC),
			decimalArg{"1200.50"}, "Shared").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	s.expectFetchAsset(11)

	w := s.do(http.MethodPost, "/api/assets", `{
		"name": "Laptop", "category_id": 2, "department": "IT", "status": "Spare",
		"purchaseDate": "2024-01-15", "warranty_expiry": "2027-01-15",
		"value": 1200.50, "usage_type": "Shared", "ignored": true
	}`)
	assert.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
}

func (s *ServerTestSuite) TestCreateAsset_MissingFields() {
	w := s.do(http.MethodPost, "/api/assets", `{"name":"Laptop","category_id":null}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	body := s.object(w)
	assert.Equal(s.T(), "Missing required fields", body["error"])
	assert.Equal(s.T(), []interface{}{"category_id", "department"}, body["missing"])
}

func (s *ServerTestSuite) TestCreateAsset_InvalidJSON() {
	for _, body := range []string{"{", "[1,2]", `"text"`} {
		w := s.do(http.MethodPost, "/api/assets", body)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code, body)
		assert.Equal(s.T(), "Invalid JSON input", s.object(w)["error"], body)
	}
}

func (s *ServerTestSuite) TestCreateAsset_BadFieldValue() {
	w := s.do(http.MethodPost, "/api/assets", `{"name":"Laptop","category_id":"two","department":"IT"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	body := s.object(w)
	assert.Equal(s.T(), "Invalid field value", body["error"])
	assert.Equal(s.T(), "category_id", body["field"])
}

func (s *ServerTestSuite) TestCreateAsset_UnknownCategory() {
	s.expectCategoryExists(42, false)

	w := s.do(http.MethodPost, "/api/assets", `{"name":"Laptop","category_id":42,"department":"IT"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Invalid category ID", s.object(w)["error"])
}

func (s *ServerTestSuite) TestUpdateAsset() {
	s.mock.ExpectExec(`UPDATE asset SET name = \$1, value = \$2 WHERE id = \$3`).
		WithArgs("Laptop Pro", decimalArg{"1500"}, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.expectFetchAsset(5)

	w := s.do(http.MethodPut, "/api/assets?id=5", `{"value":1500,"name":"Laptop Pro","id":77}`)
	assert.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
}

func (s *ServerTestSuite) TestUpdateAsset_AllowListOrder() {
	s.expectCategoryExists(3, true)
	s.mock.ExpectExec(`UPDATE asset SET category_id = \$1, department = \$2, warranty_expiry = \$3 WHERE id = \$4`).
		WithArgs(int64(3), "Finance", time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.expectFetchAsset(5)

	w := s.do(http.MethodPatch, "/api/assets/5",
		`{"warranty_expiry":"2026-06-30","department":"Finance","category_id":3}`)
	assert.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
}

func (s *ServerTestSuite) TestUpdateAsset_Rejections() {
	w := s.do(http.MethodPut, "/api/assets", `{"name":"x"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Asset ID required", s.object(w)["error"])

	w = s.do(http.MethodPut, "/api/assets/5", `{"serial":"x","category_name":"y"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "No valid fields to update", s.object(w)["error"])

	s.expectCategoryExists(8, false)
	w = s.do(http.MethodPut, "/api/assets/5", `{"category_id":8}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Invalid category ID", s.object(w)["error"])
}

func (s *ServerTestSuite) TestUpdateAsset_Missing() {
	s.mock.ExpectExec(`UPDATE asset SET status = \$1 WHERE id = \$2`).
		WithArgs("Retired", int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	s.mock.ExpectQuery(`WHERE a.id = \$1`).WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

	w := s.do(http.MethodPut, "/api/assets/404", `{"status":"Retired"}`)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.Equal(s.T(), "Asset not found", s.object(w)["error"])
}

func (s *ServerTestSuite) TestAssetDepartment() {
	s.mock.ExpectExec(`UPDATE asset SET department = \$1 WHERE id = \$2`).
		WithArgs("Finance", int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.expectFetchAsset(5)

	w := s.do(http.MethodPatch, "/api/assets/5/department", `{"department":"  Finance "}`)
	assert.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
}

func (s *ServerTestSuite) TestAssetDepartment_Rejections() {
	w := s.do(http.MethodPatch, "/api/assets/5/department", `{"department":"   "}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Department is required", s.object(w)["error"])

	w = s.do(http.MethodGet, "/api/assets/5/department", "")
	assert.Equal(s.T(), http.StatusMethodNotAllowed, w.Code)

	s.mock.ExpectExec(`UPDATE asset SET department = \$1 WHERE id = \$2`).
		WithArgs("HR", int64(77)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	w = s.do(http.MethodPut, "/api/assets/77/department", `{"department":"HR"}`)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestDeleteAsset() {
	s.mock.ExpectQuery(`SELECT id FROM asset WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))
	s.mock.ExpectExec(`DELETE FROM asset WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	w := s.do(http.MethodDelete, "/api/assets?id=5", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "Asset deleted successfully", s.object(w)["message"])
}

func (s *ServerTestSuite) TestDeleteAsset_Rejections() {
	w := s.do(http.MethodDelete, "/api/assets", "")
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Asset ID required", s.object(w)["error"])

	s.mock.ExpectQuery(`SELECT id FROM asset WHERE id = \$1`).
		WithArgs(int64(6)).
		WillReturnError(pgx.ErrNoRows)
	w = s.do(http.MethodDelete, "/api/assets/6", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.Equal(s.T(), "Asset not found", s.object(w)["error"])
}

func (s *ServerTestSuite) TestAssets_UnsupportedMethod() {
	w := s.do(http.MethodHead, "/api/assets", "")
	assert.Equal(s.T(), http.StatusMethodNotAllowed, w.Code)
}

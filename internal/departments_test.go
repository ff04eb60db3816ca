package internal

import (
	"net/http"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

func (s *ServerTestSuite) TestListDepartments() {
	s.mock.ExpectQuery(`SELECT DISTINCT TRIM\(department\) FROM asset WHERE department IS NOT NULL`).
		WillReturnRows(pgxmock.NewRows([]string{"department"}).AddRow("Finance").AddRow("IT"))

	w := s.do(http.MethodGet, "/api/departments", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), []interface{}{"Finance", "IT"}, s.list(w))
}

func (s *ServerTestSuite) TestListDepartments_Empty() {
	s.mock.ExpectQuery(`SELECT DISTINCT TRIM\(department\)`).
		WillReturnRows(pgxmock.NewRows([]string{"department"}))

	w := s.do(http.MethodGet, "/api/departments", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "[]\n", w.Body.String())
}

func (s *ServerTestSuite) TestDepartments_ReadOnly() {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		w := s.do(method, "/api/departments", `{"name":"Legal"}`)
		assert.Equal(s.T(), http.StatusMethodNotAllowed, w.Code, method)
		body := s.object(w)
		assert.Equal(s.T(), "Method not allowed", body["error"], method)
		assert.Equal(s.T(), "Departments are managed automatically from asset data", body["message"], method)
	}
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"asms-api/internal/httperr"
	"asms-api/internal/models"
)

const assetSelect = `
	SELECT a.id, a.name, a.category_id, a.department, a.status, a.purchase_date,
	       a.warranty_expiry, a.value, a.usage_type, c.name AS category_name
	FROM asset a
	LEFT JOIN category c ON a.category_id = c.id`

const insertAssetSQL = `
	INSERT INTO asset (name, category_id, department, status, purchase_date, warranty_expiry, value, usage_type)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.Name, &a.CategoryID, &a.Department, &a.Status, &a.PurchaseDate,
		&a.WarrantyExpiry, &a.Value, &a.UsageType, &a.CategoryName)
	return a, err
}

// assets dispatches /api/assets and /api/assets/{id}
func (s *Server) assets(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodGet:
		id, ok, err := queryID(r)
		if err != nil {
			return err
		}
		if ok {
			return s.getAsset(w, r, id)
		}
		return s.listAssets(w, r)
	case http.MethodPost:
		return s.createAsset(w, r)
	case http.MethodPut, http.MethodPatch:
		return s.updateAsset(w, r)
	case http.MethodDelete:
		return s.deleteAsset(w, r)
	default:
		return httperr.MethodNotAllowed("")
	}
}

// listAssets returns every asset, newest first
func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) error {
	rows, err := s.DB.Query(r.Context(), assetSelect+" ORDER BY a.id DESC")
	if err != nil {
		return httperr.Database(err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return httperr.Database(err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return httperr.Database(err)
	}

	return httperr.WriteJSON(w, http.StatusOK, assets)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request, id int64) error {
	a, err := s.fetchAsset(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		return httperr.NotFound("Asset not found")
	}
	if err != nil {
		return httperr.Database(err)
	}
	return httperr.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) fetchAsset(ctx context.Context, id int64) (models.Asset, error) {
	return scanAsset(s.DB.QueryRow(ctx, assetSelect+" WHERE a.id = $1", id))
}

// categoryExists reports whether a category row with id is present
func (s *Server) categoryExists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := s.DB.QueryRow(ctx, "SELECT id FROM category WHERE id = $1", id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// createAsset validates the body, checks the category and inserts with defaults
func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) error {
	var req models.CreateAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if missing := req.MissingFields(); len(missing) > 0 {
		return httperr.MissingFields(missing)
	}

	ctx := r.Context()
	ok, err := s.categoryExists(ctx, *req.CategoryID)
	if err != nil {
		return httperr.Database(err)
	}
	if !ok {
		return httperr.BadRequest("Invalid category ID")
	}

	status := models.DefaultAssetStatus
	if req.Status != nil {
		status = *req.Status
	}
	purchased := models.NewDate(s.now())
	if d := req.EffectivePurchaseDate(); d != nil {
		purchased = *d
	}
	value := decimal.Zero
	if req.Value != nil {
		value = *req.Value
	}
	usage := models.DefaultAssetUsageType
	if req.UsageType != nil {
		usage = *req.UsageType
	}

	var id int64
	err = s.DB.QueryRow(ctx, insertAssetSQL,
		*req.Name, *req.CategoryID, *req.Department, status,
		purchased.Time, models.DateArg(req.WarrantyExpiry), value, usage,
	).Scan(&id)
	if err != nil {
		return httperr.Database(err)
	}

	created, err := s.fetchAsset(ctx, id)
	if err != nil {
		return httperr.Database(err)
	}
	return httperr.WriteJSON(w, http.StatusOK, created)
}

// updateAsset applies a partial update restricted to the mutable columns
func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) error {
	id, ok, err := queryID(r)
	if err != nil {
		return err
	}
	if !ok {
		return httperr.BadRequest("Asset ID required")
	}

	var in models.UpdateAssetRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}

	ctx := r.Context()
	type set struct {
		column string
		val    interface{}
	}
	sets := make([]set, 0, 8)
	if in.Name != nil {
		sets = append(sets, set{"name", *in.Name})
	}
	if in.CategoryID != nil {
		exists, err := s.categoryExists(ctx, *in.CategoryID)
		if err != nil {
			return httperr.Database(err)
		}
		if !exists {
			return httperr.BadRequest("Invalid category ID")
		}
		sets = append(sets, set{"category_id", *in.CategoryID})
	}
	if in.Department != nil {
		sets = append(sets, set{"department", *in.Department})
	}
	if in.Status != nil {
		sets = append(sets, set{"status", *in.Status})
	}
	if in.PurchaseDate != nil {
		sets = append(sets, set{"purchase_date", in.PurchaseDate.Time})
	}
	if in.WarrantyExpiry != nil {
		sets = append(sets, set{"warranty_expiry", in.WarrantyExpiry.Time})
	}
	if in.Value != nil {
		sets = append(sets, set{"value", *in.Value})
	}
	if in.UsageType != nil {
		sets = append(sets, set{"usage_type", *in.UsageType})
	}
	if len(sets) == 0 {
		return httperr.BadRequest("No valid fields to update")
	}

	parts := make([]string, 0, len(sets))
	args := make([]interface{}, 0, len(sets)+1)
	for i, st := range sets {
		parts = append(parts, fmt.Sprintf("%s = $%d", st.column, i+1))
		args = append(args, st.val)
	}
	sqlStr := "UPDATE asset SET " + strings.Join(parts, ", ") + fmt.Sprintf(" WHERE id = $%d", len(args)+1)
	args = append(args, id)

	if _, err := s.DB.Exec(ctx, sqlStr, args...); err != nil {
		return httperr.Database(err)
	}

	return s.getAsset(w, r, id)
}

// assetDepartment handles /api/assets/{id}/department
func (s *Server) assetDepartment(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		return httperr.MethodNotAllowed("")
	}

	id, ok, err := queryID(r)
	if err != nil {
		return err
	}
	if !ok {
		return httperr.BadRequest("Asset ID required")
	}

	var in models.UpdateDepartmentRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	if in.Department == nil || strings.TrimSpace(*in.Department) == "" {
		return httperr.BadRequest("Department is required")
	}

	tag, err := s.DB.Exec(r.Context(), "UPDATE asset SET department = $1 WHERE id = $2",
		strings.TrimSpace(*in.Department), id)
	if err != nil {
		return httperr.Database(err)
	}
	if tag.RowsAffected() == 0 {
		return httperr.NotFound("Asset not found")
	}

	return s.getAsset(w, r, id)
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) error {
	id, ok, err := queryID(r)
	if err != nil {
		return err
	}
	if !ok {
		return httperr.BadRequest("Asset ID required")
	}

	ctx := r.Context()
	var found int64
	err = s.DB.QueryRow(ctx, "SELECT id FROM asset WHERE id = $1", id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return httperr.NotFound("Asset not found")
	}
	if err != nil {
		return httperr.Database(err)
	}

	if _, err := s.DB.Exec(ctx, "DELETE FROM asset WHERE id = $1", id); err != nil {
		return httperr.Database(err)
	}

	return httperr.WriteJSON(w, http.StatusOK, messageResponse{Message: "Asset deleted successfully"})
}

// Package importer loads assets in bulk from .xlsx workbooks.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"asms-api/internal/models"
)

// DefaultMaxErrors is used when Options.MaxErrors is not positive
const DefaultMaxErrors = 50

// ErrTooManyErrors is returned once more rows failed than Options.MaxErrors allows
var ErrTooManyErrors = errors.New("too many row errors")

// DB is the part of the connection pool the importer needs
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Options defines the configuration for an import run
type Options struct {
	// Sheet selects a worksheet by name; empty means the mapping's sheet,
	// then the first sheet in the workbook
	Sheet     string
	DryRun    bool
	MaxErrors int
	Mapping   *Mapping
	Now       func() time.Time
}

// RowError describes a rejected spreadsheet row (1-based, header is row 1)
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Summary contains the import statistics
type Summary struct {
	Sheet    string     `json:"sheet"`
	Inserted int        `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples"`
	DryRun   bool       `json:"dry_run"`
}

// Row is one data row after header mapping, before validation.
// Date columns hold YYYY-MM-DD when the cell carried an Excel serial date.
type Row struct {
	Number int
	Values map[string]string
}

const insertAssetSQL = `
	INSERT INTO asset (name, category_id, department, status, purchase_date, warranty_expiry, value, usage_type)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

// Import reads the workbook in r and inserts one asset per non-blank row.
// Rows failing validation are counted and sampled, not fatal; the run stops
// with ErrTooManyErrors once the error budget is exceeded. In dry-run mode
// rows are validated (including category lookups) but nothing is written.
func Import(ctx context.Context, db DB, r io.Reader, opts Options) (Summary, error) {
	if opts.Mapping == nil {
		opts.Mapping = DefaultMapping()
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	summary := Summary{DryRun: opts.DryRun, Samples: []RowError{}}

	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	sheet, err := pickSheet(wb, opts)
	if err != nil {
		return summary, err
	}
	summary.Sheet = sheet.Name

	rows, err := ReadRows(sheet, opts.Mapping, wb.Date1904)
	if err != nil {
		return summary, err
	}

	cats := newCategoryResolver(db)
	for _, row := range rows {
		if len(row.Values) == 0 {
			summary.Skipped++
			continue
		}

		asset, err := buildAsset(ctx, row, cats, opts.Now)
		if err == nil && !opts.DryRun {
			err = insertAsset(ctx, db, asset)
		}
		if err != nil {
			summary.Errors++
			summary.Samples = append(summary.Samples, RowError{Row: row.Number, Message: err.Error()})
			if summary.Errors > opts.MaxErrors {
				return summary, fmt.Errorf("%w: %d errors, stopping at row %d", ErrTooManyErrors, summary.Errors, row.Number)
			}
			continue
		}
		summary.Inserted++
	}

	return summary, nil
}

func pickSheet(wb *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	name := opts.Sheet
	if name == "" {
		name = opts.Mapping.Sheet
	}
	if name != "" {
		sheet, ok := wb.Sheet[name]
		if !ok {
			return nil, fmt.Errorf("sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(wb.Sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return wb.Sheets[0], nil
}

// ReadRows maps every row below the header to asset fields
func ReadRows(sheet *xlsx.Sheet, mapping *Mapping, date1904 bool) ([]Row, error) {
	if sheet.MaxRow == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}

	header, err := sheet.Row(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	columns := make(map[int]string)
	seen := make(map[string]bool)
	for col := 0; col < sheet.MaxCol; col++ {
		field, ok := mapping.fieldFor(header.GetCell(col).String())
		if !ok || seen[field] {
			continue
		}
		columns[col] = field
		seen[field] = true
	}

	var missing []string
	for _, field := range requiredFields {
		if !seen[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sheet %q is missing columns for: %s", sheet.Name, strings.Join(missing, ", "))
	}

	rows := make([]Row, 0, sheet.MaxRow-1)
	for idx := 1; idx < sheet.MaxRow; idx++ {
		xr, err := sheet.Row(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", idx+1, err)
		}

		row := Row{Number: idx + 1, Values: map[string]string{}}
		for col, field := range columns {
			cell := xr.GetCell(col)
			v := strings.TrimSpace(cell.String())
			if v == "" {
				continue
			}
			if isDateField(field) {
				v = serialDate(v, cell.Value, date1904)
			}
			row.Values[field] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isDateField(field string) bool {
	return field == FieldPurchaseDate || field == FieldWarrantyExpiry
}

// serialDate converts a date-formatted cell, whose raw value is an Excel
// serial number, to YYYY-MM-DD. Text that already parses as a date is kept.
func serialDate(formatted, raw string, date1904 bool) string {
	if _, err := models.ParseDate(formatted); err == nil {
		return formatted
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return formatted
	}
	return models.NewDate(xlsx.TimeFromExcelTime(serial, date1904)).String()
}

type assetRow struct {
	Name           string
	CategoryID     int64
	Department     string
	Status         string
	PurchaseDate   models.Date
	WarrantyExpiry *models.Date
	Value          decimal.Decimal
	UsageType      string
}

// buildAsset applies the same rules as the create endpoint: required
// fields, an existing category, and defaults for the rest
func buildAsset(ctx context.Context, row Row, cats *categoryResolver, now func() time.Time) (assetRow, error) {
	var missing []string
	if row.Values[FieldName] == "" {
		missing = append(missing, "name")
	}
	if row.Values[FieldCategory] == "" {
		missing = append(missing, "category_id")
	}
	if row.Values[FieldDepartment] == "" {
		missing = append(missing, "department")
	}
	if len(missing) > 0 {
		return assetRow{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	a := assetRow{
		Name:       row.Values[FieldName],
		Department: row.Values[FieldDepartment],
		Status:     models.DefaultAssetStatus,
		UsageType:  models.DefaultAssetUsageType,
		Value:      decimal.Zero,
	}
	if v := row.Values[FieldStatus]; v != "" {
		a.Status = v
	}
	if v := row.Values[FieldUsageType]; v != "" {
		a.UsageType = v
	}

	purchased, err := rowDate(row, FieldPurchaseDate)
	if err != nil {
		return assetRow{}, err
	}
	if purchased != nil {
		a.PurchaseDate = *purchased
	} else {
		a.PurchaseDate = models.NewDate(now())
	}
	if a.WarrantyExpiry, err = rowDate(row, FieldWarrantyExpiry); err != nil {
		return assetRow{}, err
	}

	if v := row.Values[FieldValue]; v != "" {
		d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
		if err != nil {
			return assetRow{}, fmt.Errorf("invalid value %q", v)
		}
		a.Value = d
	}

	a.CategoryID, err = cats.resolve(ctx, row.Values[FieldCategory])
	if err != nil {
		return assetRow{}, err
	}
	return a, nil
}

func rowDate(row Row, field string) (*models.Date, error) {
	v := row.Values[field]
	if v == "" {
		return nil, nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", field, v)
	}
	return &d, nil
}

func insertAsset(ctx context.Context, db DB, a assetRow) error {
	var id int64
	err := db.QueryRow(ctx, insertAssetSQL,
		a.Name, a.CategoryID, a.Department, a.Status,
		a.PurchaseDate.Time, models.DateArg(a.WarrantyExpiry), a.Value, a.UsageType,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

// categoryResolver looks categories up by id or exact name, once per distinct reference
type categoryResolver struct {
	db    DB
	cache map[string]int64
}

func newCategoryResolver(db DB) *categoryResolver {
	return &categoryResolver{db: db, cache: make(map[string]int64)}
}

func (c *categoryResolver) resolve(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if id, ok := c.cache[ref]; ok {
		if id == 0 {
			return 0, fmt.Errorf("invalid category %q", ref)
		}
		return id, nil
	}

	var id int64
	var err error
	if n, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		err = c.db.QueryRow(ctx, "SELECT id FROM category WHERE id = $1", n).Scan(&id)
	} else {
		err = c.db.QueryRow(ctx, "SELECT id FROM category WHERE name = $1", ref).Scan(&id)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		c.cache[ref] = 0
		return 0, fmt.Errorf("invalid category %q", ref)
	}
	if err != nil {
		return 0, fmt.Errorf("category lookup failed: %w", err)
	}

	c.cache[ref] = id
	return id, nil
}

package importer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Asset fields a spreadsheet column can map to
const (
	FieldName           = "name"
	FieldCategory       = "category"
	FieldDepartment     = "department"
	FieldStatus         = "status"
	FieldPurchaseDate   = "purchase_date"
	FieldWarrantyExpiry = "warranty_expiry"
	FieldValue          = "value"
	FieldUsageType      = "usage_type"
)

var knownFields = map[string]bool{
	FieldName: true, FieldCategory: true, FieldDepartment: true, FieldStatus: true,
	FieldPurchaseDate: true, FieldWarrantyExpiry: true, FieldValue: true, FieldUsageType: true,
}

// requiredFields must each be matched by a header column
var requiredFields = []string{FieldName, FieldCategory, FieldDepartment}

// Mapping tells the importer which header names feed which asset field.
// Header matching ignores case and surrounding whitespace.
type Mapping struct {
	Version int                 `yaml:"version"`
	Sheet   string              `yaml:"sheet"`
	Columns map[string][]string `yaml:"columns"`
}

// DefaultMapping covers the column titles used by the asset register template
func DefaultMapping() *Mapping {
	return &Mapping{
		Version: 1,
		Columns: map[string][]string{
			FieldName:           {"Name", "Asset", "Asset Name"},
			FieldCategory:       {"Category", "Category ID", "Category Name", "category_id"},
			FieldDepartment:     {"Department", "Dept"},
			FieldStatus:         {"Status"},
			FieldPurchaseDate:   {"Purchase Date", "Purchased", "purchase_date", "purchaseDate"},
			FieldWarrantyExpiry: {"Warranty Expiry", "Warranty", "warranty_expiry"},
			FieldValue:          {"Value", "Cost", "Price"},
			FieldUsageType:      {"Usage Type", "Usage", "usage_type"},
		},
	}
}

// ParseMapping decodes a YAML mapping document
func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadMapping reads a YAML mapping file from disk
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	return ParseMapping(data)
}

// Validate rejects unknown fields and mappings that leave a required field unmapped
func (m *Mapping) Validate() error {
	var unknown []string
	for field := range m.Columns {
		if !knownFields[field] {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("mapping: unknown fields %s", strings.Join(unknown, ", "))
	}
	for _, field := range requiredFields {
		if len(m.Columns[field]) == 0 {
			return fmt.Errorf("mapping: no columns for required field %q", field)
		}
	}
	return nil
}

// fieldFor returns the asset field a header title maps to
func (m *Mapping) fieldFor(header string) (string, bool) {
	h := normalizeHeader(header)
	if h == "" {
		return "", false
	}
	for field, aliases := range m.Columns {
		for _, alias := range aliases {
			if normalizeHeader(alias) == h {
				return field, true
			}
		}
	}
	return "", false
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/shared"
	csvimport "github.com/artisanmarket/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ConflictMode decides what happens to a row whose SKU the store already uses
type ConflictMode string

const (
	// ConflictModeSkip leaves the existing product untouched
	ConflictModeSkip ConflictMode = "skip"
	// ConflictModeUpdate overwrites the existing product with the row
	ConflictModeUpdate ConflictMode = "update"
	// ConflictModeFail aborts the whole import before any write
	ConflictModeFail ConflictMode = "fail"
)

// IsValid checks if the conflict mode is valid
func (m ConflictMode) IsValid() bool {
	switch m {
	case ConflictModeSkip, ConflictModeUpdate, ConflictModeFail:
		return true
	}
	return false
}

const (
	defaultImportMaxRows = 1000
	maxImportErrors      = 100
)

// ErrInvalidImportFile is returned for files that cannot be read as CSV
var ErrInvalidImportFile = shared.NewDomainError("INVALID_CSV", "The file is not a readable CSV")

// ImportColumns lists every recognized column; the first three are required
var ImportColumns = []string{
	"name", "price", "quantity", "description", "compare_at_price", "categories",
	"tags", "images", "sku", "featured", "low_stock_threshold", "status",
}

// ImportProductsRequest is one CSV upload
type ImportProductsRequest struct {
	File    io.Reader
	Mode    ConflictMode
	DryRun  bool
	MaxRows int
}

// ImportResult summarizes an import. Row numbers in Errors are file lines,
// with the header on line 1.
type ImportResult struct {
	TotalRows   int                  `json:"totalRows"`
	ValidRows   int                  `json:"validRows"`
	Created     int                  `json:"created"`
	Updated     int                  `json:"updated"`
	Skipped     int                  `json:"skipped"`
	ErrorRows   int                  `json:"errorRows"`
	DryRun      bool                 `json:"dryRun"`
	Errors      []csvimport.RowError `json:"errors"`
	IsTruncated bool                 `json:"isTruncated,omitempty"`
	TotalErrors int                  `json:"totalErrors,omitempty"`
}

type importRow struct {
	line     int
	listing  CreateProductRequest
	status   *catalog.ProductStatus
	existing *catalog.Product
}

func importRules() []csvimport.FieldRule {
	zero := decimal.Zero
	return []csvimport.FieldRule{
		csvimport.Field("name").Required().MaxLength(200).Build(),
		csvimport.Field("price").Required().Decimal().MinValue(zero).Build(),
		csvimport.Field("quantity").Required().Int().MinValue(zero).Build(),
		csvimport.Field("description").MaxLength(5000).Build(),
		csvimport.Field("compare_at_price").Decimal().MinValue(zero).Build(),
		csvimport.Field("sku").MaxLength(100).Unique().Build(),
		csvimport.Field("featured").Bool().Build(),
		csvimport.Field("low_stock_threshold").Int().MinValue(zero).Build(),
		csvimport.Field("status").Custom(validateImportStatus).Build(),
	}
}

func validateImportStatus(value string) error {
	switch catalog.ProductStatus(strings.ToLower(value)) {
	case catalog.ProductStatusActive, catalog.ProductStatusDraft, catalog.ProductStatusInactive:
		return nil
	}
	return errors.New("status must be active, draft or inactive")
}

// Import creates or updates the caller's products from a CSV file. Rows
// that fail validation are reported and skipped; the rest are written one
// by one. A dry run validates and resolves conflicts without writing.
func (s *ProductService) Import(ctx context.Context, actor Actor, req ImportProductsRequest) (*ImportResult, error) {
	if req.Mode == "" {
		req.Mode = ConflictModeSkip
	}
	if !req.Mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONFLICT_MODE", "mode must be skip, update or fail")
	}
	if req.MaxRows <= 0 {
		req.MaxRows = defaultImportMaxRows
	}

	store, err := s.storeOf(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	rows, err := readImportFile(req.File, req.MaxRows)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{TotalRows: len(rows), DryRun: req.DryRun}
	validator := csvimport.NewFieldValidator(importRules(), maxImportErrors)
	errs := validator.Errors()

	var pending []importRow
	for _, row := range rows {
		if !validator.ValidateRow(row) {
			continue
		}
		pending = append(pending, toImportRow(row))
	}

	conflicts := 0
	for i := range pending {
		sku := pending[i].listing.SKU
		if sku == "" {
			continue
		}
		existing, err := s.products.FindByVendorSKU(ctx, store.ID, sku)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pending[i].existing = existing
		conflicts++
		if req.Mode == ConflictModeFail {
			errs.Add(csvimport.RowError{Row: pending[i].line, Column: "sku", Code: csvimport.ErrCodeConflict,
				Message: "a product with this SKU already exists", Value: sku})
		}
	}
	result.ValidRows = len(pending)

	if req.DryRun || (req.Mode == ConflictModeFail && conflicts > 0) {
		finishImport(result, errs)
		return result, nil
	}

	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.importRow(ctx, store.ID, row, req.Mode, result); err != nil {
			var domainErr *shared.DomainError
			if !errors.As(err, &domainErr) {
				return nil, err
			}
			errs.Add(csvimport.RowError{Row: row.line, Code: csvimport.ErrCodeRejected, Message: domainErr.Message})
		}
	}

	finishImport(result, errs)
	s.logger.Info("Products imported",
		zap.String("vendor_id", store.ID.String()),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("error_rows", result.ErrorRows))
	return result, nil
}

func (s *ProductService) importRow(ctx context.Context, vendorID uuid.UUID, row importRow, mode ConflictMode, result *ImportResult) error {
	if row.existing != nil {
		if mode == ConflictModeSkip {
			result.Skipped++
			return nil
		}
		return s.overwrite(ctx, row, result)
	}

	product, err := newListing(vendorID, row.listing)
	if err != nil {
		return err
	}
	if row.status != nil && product.Status != catalog.ProductStatusOutOfStock {
		product.Status = *row.status
	}
	if err := s.products.Save(ctx, product); err != nil {
		return err
	}
	s.publish(ctx, product)
	result.Created++
	return nil
}

func (s *ProductService) overwrite(ctx context.Context, row importRow, result *ImportResult) error {
	product := row.existing
	l := row.listing
	update := catalog.ProductUpdate{
		Name:       &l.Name,
		Price:      &l.Price,
		Quantity:   &l.Quantity,
		Categories: l.Categories,
		Status:     row.status,
	}
	if l.Description != "" {
		update.Description = &l.Description
	}
	if l.CompareAtPrice != nil {
		update.CompareAtPrice = l.CompareAtPrice
	}
	if l.Tags != nil {
		update.Tags = l.Tags
	}
	if l.Images != nil {
		update.Images = l.Images
	}
	if l.Featured {
		update.Featured = &l.Featured
	}
	if err := product.Update(update); err != nil {
		return err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return err
	}
	if err := s.products.SetStock(ctx, product.ID, l.Quantity); err != nil {
		return err
	}
	s.publish(ctx, product)
	result.Updated++
	return nil
}

func readImportFile(r io.Reader, maxRows int) ([]*csvimport.Row, error) {
	parser, err := csvimport.NewParser(r, csvimport.WithMaxRows(maxRows))
	if err != nil {
		return nil, importFileError(err)
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, importFileError(err)
	}
	if missing := parser.MissingHeaders(ImportColumns[:3]); len(missing) > 0 {
		return nil, shared.NewDomainError(ErrInvalidImportFile.Code,
			"Missing required columns: "+strings.Join(missing, ", "))
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		if errors.Is(err, csvimport.ErrTooManyRows) {
			return nil, shared.NewDomainError(ErrInvalidImportFile.Code,
				fmt.Sprintf("Import is limited to %d rows", maxRows))
		}
		return nil, importFileError(err)
	}
	if len(rows) == 0 {
		return nil, importFileError(csvimport.ErrNoDataRows)
	}
	return rows, nil
}

func importFileError(err error) error {
	return shared.NewDomainError(ErrInvalidImportFile.Code, err.Error())
}

// toImportRow converts a row that already passed validation
func toImportRow(row *csvimport.Row) importRow {
	out := importRow{line: row.LineNumber}
	l := &out.listing
	l.Name = row.Get("name")
	l.Description = row.Get("description")
	l.Price = decimal.RequireFromString(row.Get("price"))
	l.Quantity, _ = strconv.Atoi(row.Get("quantity"))
	l.SKU = row.Get("sku")
	if v := row.Get("compare_at_price"); v != "" {
		d := decimal.RequireFromString(v)
		l.CompareAtPrice = &d
	}
	if v := row.Get("categories"); v != "" {
		l.Categories = csvimport.SplitList(v)
	}
	if v := row.Get("tags"); v != "" {
		l.Tags = csvimport.SplitList(v)
	}
	if v := row.Get("images"); v != "" {
		l.Images = csvimport.SplitList(v)
	}
	if v := row.Get("featured"); v != "" {
		l.Featured, _ = csvimport.ParseBool(v)
	}
	if v := row.Get("low_stock_threshold"); v != "" {
		n, _ := strconv.Atoi(v)
		l.LowStockThreshold = &n
	}
	if v := row.Get("status"); v != "" {
		status := catalog.ProductStatus(strings.ToLower(v))
		out.status = &status
	}
	return out
}

func finishImport(result *ImportResult, errs *csvimport.ErrorCollection) {
	result.ErrorRows = errs.RowCount()
	result.Errors = errs.Errors()
	result.IsTruncated = errs.IsTruncated()
	result.TotalErrors = errs.TotalCount()
}

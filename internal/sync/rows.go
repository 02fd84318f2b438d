package sync

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"product-sync-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// headerCutset trims whitespace and stray quotes from header cells
const headerCutset = " \t\n\r\x00\x0b\""

func normalizeHeader(cell string) string {
	return strings.ToLower(strings.Trim(cell, headerCutset))
}

func rowFromRecord(headers []string, record []string, rowNumber int) models.CatalogRow {
	fields := make(map[string]string, len(headers))
	for i, name := range headers {
		if i < len(record) {
			fields[name] = strings.TrimSpace(record[i])
		}
	}
	return models.CatalogRow{
		Row:         rowNumber,
		ExternalID:  fields["product_id"],
		Name:        fields["product_name"],
		ImageURL:    fields["image_url"],
		Price:       fields["current_price"],
		StockStatus: fields["stock_status"],
		IsActive:    fields["is_active"],
		HasVariants: fields["has_variants"],
		VariantsRaw: fields["variants"],
	}
}

// ParseCSV reads a catalog CSV into rows. The first line is the header; rows
// are numbered by physical line so error reports point at the file.
func ParseCSV(file io.Reader) ([]models.CatalogRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	headers := make([]string, len(headerRecord))
	for i, cell := range headerRecord {
		headers[i] = normalizeHeader(cell)
	}

	var rows []models.CatalogRow
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}
		lineNum++
		rows = append(rows, rowFromRecord(headers, record, lineNum))
	}

	return rows, nil
}

// ParseXLSX reads a catalog workbook into rows using the first sheet
// (preferring one named "Products")
func ParseXLSX(file io.Reader) ([]models.CatalogRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Products") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := make([]string, len(excelRows[0]))
	for i, cell := range excelRows[0] {
		headers[i] = normalizeHeader(cell)
	}

	var rows []models.CatalogRow
	for rowIdx, excelRow := range excelRows[1:] {
		rows = append(rows, rowFromRecord(headers, excelRow, rowIdx+2))
	}

	return rows, nil
}

package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyunseo/mediascan/internal/models"
)

const xlsxSheet = "분석결과"

// StoreXLSX serializes the whole store into a styled workbook with the
// same column set as the full CSV export.
func StoreXLSX(records []models.FileRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F3F4F6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(storeCSVHeader))
	for i, h := range storeCSVHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	endCol, _ := excelize.ColumnNumberToName(len(storeCSVHeader))
	if err := f.SetCellStyle(xlsxSheet, "A1", endCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, rec := range records {
		pub := publicDoc(rec)
		sr := rec.StudioResults
		row := []interface{}{
			rec.FileName,
			string(rec.MediaType),
			string(rec.Mode),
			string(rec.Status),
			rec.Summary,
			strings.Join(rec.Keywords, ", "),
			strings.Join(rec.Metadata.Objects, ", "),
			strings.Join(rec.Metadata.Colors, ", "),
			rec.Metadata.Location,
			rec.Metadata.Accuracy,
			float64(rec.Metadata.Confidence),
			pub.DocNumber,
			pub.Sender,
			pub.Receiver,
			pub.Title,
			pub.Department,
			pub.Date,
			rec.ExtractedText,
			rec.CorrectedText,
			sr["sns"],
			sr["alt"],
			sr["json"],
			sr["youtube"],
			sr["timeline"],
			sr["meeting"],
			sr["todo"],
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

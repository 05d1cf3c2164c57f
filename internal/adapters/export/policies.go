// Package export renders page data as downloadable spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/okian/vitaldash/internal/domain/display"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/xuri/excelize/v2"
)

// PoliciesSheet is the worksheet name of the policies export.
const PoliciesSheet = "Policies"

// ContentTypeXLSX is the MIME type of the generated workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PolicyHeader lists the export columns in order.
var PolicyHeader = []string{
	"Policy Number",
	"Policy Type",
	"Status",
	"Coverage Amount",
	"Premium Amount",
	"Start Date",
	"End Date",
	"Covered Benefits",
	"Total Claims",
	"Approved Claims",
	"Pending Claims",
	"Rejected Claims",
}

var policyColumnWidths = []float64{18, 20, 12, 18, 18, 14, 14, 48, 14, 16, 16, 16}

// Policies builds an xlsx workbook with one row per policy.
func Policies(policies []model.InsurancePolicy) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; every return path closes it.
	fail := func(format string, err error) ([]byte, error) {
		_ = f.Close()
		return nil, fmt.Errorf(format, err)
	}

	index, err := f.NewSheet(PoliciesSheet)
	if err != nil {
		return fail("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fail("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E7FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fail("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fail("failed to create money style: %w", err)
	}

	for col, header := range PolicyHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fail("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(PoliciesSheet, cell, header); err != nil {
			return fail("failed to set header cell: %w", err)
		}
		if err := f.SetCellStyle(PoliciesSheet, cell, cell, headerStyle); err != nil {
			return fail("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fail("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(PoliciesSheet, name, name, policyColumnWidths[col]); err != nil {
			return fail("failed to set column width: %w", err)
		}
	}

	for i, p := range policies {
		row := i + 2
		values := []any{
			p.PolicyNumber,
			p.PolicyType,
			p.RawStatus,
			p.CoverageAmount,
			p.PremiumAmount,
			display.Date(p.StartDate),
			display.Date(p.EndDate),
			coveredBenefits(p.CoverageDetails),
			p.ClaimsHistory.TotalClaims,
			p.ClaimsHistory.ApprovedClaims,
			p.ClaimsHistory.PendingClaims,
			p.ClaimsHistory.RejectedClaims,
		}
		start, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fail("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(PoliciesSheet, start, &values); err != nil {
			return fail("failed to write policy row: %w", err)
		}
		from, _ := excelize.CoordinatesToCellName(4, row)
		to, _ := excelize.CoordinatesToCellName(5, row)
		if err := f.SetCellStyle(PoliciesSheet, from, to, moneyStyle); err != nil {
			return fail("failed to set money style: %w", err)
		}
	}

	if err := f.SetPanes(PoliciesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fail("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fail("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func coveredBenefits(details model.CoverageDetails) string {
	var names []string
	for _, c := range details {
		if c.Covered {
			names = append(names, display.HumanizeKey(c.Key))
		}
	}
	return strings.Join(names, ", ")
}

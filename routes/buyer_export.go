package routes

import (
	"strconv"
	"strings"

	"github.com/mohitmourya42infinite/buyer-lead-intake/models"
	"github.com/mohitmourya42infinite/buyer-lead-intake/utils"

	"github.com/kataras/iris/v12"
	"github.com/xuri/excelize/v2"
)

// buyerColumns is the fixed header order for CSV/XLSX export and the
// required column set for import.
var buyerColumns = []string{
	"fullName", "email", "phone", "city", "propertyType", "bhk", "purpose",
	"budgetMin", "budgetMax", "timeline", "source", "notes", "tags", "status",
}

// ExportBuyers serializes the full filtered set (same predicate as the list
// endpoint, no pagination) to CSV, or to a spreadsheet with ?format=xlsx.
func ExportBuyers(ctx iris.Context) {
	var buyers []models.Buyer
	if err := buyerFilterQuery(ctx).Order("updated_at DESC").Find(&buyers).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if strings.EqualFold(ctx.URLParam("format"), "xlsx") {
		exportXLSX(ctx, buyers)
		return
	}

	var b strings.Builder
	b.WriteString(strings.Join(buyerColumns, ","))
	for i := range buyers {
		b.WriteByte('\n')
		b.WriteString(exportRow(&buyers[i]))
	}

	ctx.ContentType("text/csv")
	ctx.Header("Content-Disposition", `attachment; filename=buyers.csv`)
	ctx.WriteString(b.String())
}

// exportValues renders a buyer as UI-facing cell values in buyerColumns
// order: enums decoded back to UI tokens, tags joined on "|", notes
// newlines flattened to spaces.
func exportValues(b *models.Buyer) []string {
	email := ""
	if b.Email != nil {
		email = *b.Email
	}
	bhk := ""
	if b.BHK != nil {
		bhk = utils.DecodeBHK(*b.BHK)
	}
	notes := ""
	if b.Notes != nil {
		notes = strings.ReplaceAll(*b.Notes, "\n", " ")
	}

	return []string{
		b.FullName,
		email,
		b.Phone,
		b.City,
		b.PropertyType,
		bhk,
		b.Purpose,
		intPtrString(b.BudgetMin),
		intPtrString(b.BudgetMax),
		utils.DecodeTimeline(b.Timeline),
		utils.DecodeSource(b.Source),
		notes,
		strings.Join(b.TagList(), "|"),
		b.Status,
	}
}

func exportRow(b *models.Buyer) string {
	values := exportValues(b)
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = csvField(v)
	}
	return strings.Join(quoted, ",")
}

// csvField wraps every field in quotes, doubling embedded quotes
// (RFC4180-like; the header row stays unquoted).
func csvField(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func intPtrString(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func exportXLSX(ctx iris.Context, buyers []models.Buyer) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Buyers"
	f.SetSheetName("Sheet1", sheet)

	for col, name := range buyerColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		f.SetCellValue(sheet, cell, name)
	}

	for row := range buyers {
		values := exportValues(&buyers[row])
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				utils.CreateInternalServerError(ctx)
				return
			}
			f.SetCellValue(sheet, cell, v)
		}
	}

	ctx.ContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Header("Content-Disposition", `attachment; filename=buyers.xlsx`)
	if err := f.Write(ctx.ResponseWriter()); err != nil {
		utils.CreateInternalServerError(ctx)
	}
}

package routes

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mohitmourya42infinite/buyer-lead-intake/models"
	"github.com/mohitmourya42infinite/buyer-lead-intake/storage"
	"github.com/mohitmourya42infinite/buyer-lead-intake/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

const importRowLimit = 200

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportBuyers accepts a CSV body of at most 200 data rows and inserts the
// whole batch in one transaction, or rejects it entirely with per-row
// errors. Rows are attributed to the configured import owner, not the
// session user, and no per-row history is written.
func ImportBuyers(ctx iris.Context) {
	body, err := ctx.GetBody()
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "unable to read request body", ctx)
		return
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "malformed CSV: "+err.Error(), ctx)
		return
	}
	if len(records) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "empty CSV", ctx)
		return
	}

	header := records[0]
	rows := records[1:]

	// the row cap is checked before any row is parsed or validated
	if len(rows) > importRowLimit {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Max 200 rows", ctx)
		return
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range buyerColumns {
		if _, ok := colIndex[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Missing headers: "+strings.Join(missing, ", "), ctx)
		return
	}

	var rowErrors []ImportRowError
	var inputs []models.BuyerInput
	for i, record := range rows {
		// reported row numbers are 1-indexed over the file including the
		// header, so data row i maps to i+2
		rowNumber := i + 2

		input, parseErr := inputFromRecord(record, colIndex)
		if parseErr != nil {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNumber, Message: parseErr.Error()})
			continue
		}
		if fieldErrs := utils.ValidateStruct(input); len(fieldErrs) > 0 {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNumber, Message: utils.JoinFieldErrors(fieldErrs)})
			continue
		}
		inputs = append(inputs, input)
	}

	// all-or-nothing: any failing row rejects the entire batch
	if len(rowErrors) > 0 {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"errors": rowErrors})
		return
	}

	// resolved only once the batch is known valid, so a rejected upload
	// leaves nothing behind
	owner, ownerErr := importOwner()
	if ownerErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	buyers := make([]*models.Buyer, 0, len(inputs))
	for _, input := range inputs {
		buyers = append(buyers, buyerFromInput(input, owner.ID))
	}

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		for _, b := range buyers {
			if err := tx.Create(b).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"inserted": len(buyers)})
}

// inputFromRecord maps a CSV row to a BuyerInput: cells trimmed, blanks
// treated as absent, tags split on "|", status defaulting to New.
func inputFromRecord(record []string, colIndex map[string]int) (models.BuyerInput, error) {
	cell := func(name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	input := models.BuyerInput{
		FullName:     cell("fullName"),
		Email:        cell("email"),
		Phone:        cell("phone"),
		City:         cell("city"),
		PropertyType: cell("propertyType"),
		BHK:          cell("bhk"),
		Purpose:      cell("purpose"),
		Timeline:     cell("timeline"),
		Source:       cell("source"),
		Notes:        cell("notes"),
		Status:       cell("status"),
	}
	if input.Status == "" {
		input.Status = "New"
	}

	if raw := cell("budgetMin"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return input, fmt.Errorf("budgetMin: must be an integer")
		}
		input.BudgetMin = &n
	}
	if raw := cell("budgetMax"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return input, fmt.Errorf("budgetMax: must be an integer")
		}
		input.BudgetMax = &n
	}

	if raw := cell("tags"); raw != "" {
		for _, tag := range strings.Split(raw, "|") {
			if tag = strings.TrimSpace(tag); tag != "" {
				input.Tags = append(input.Tags, tag)
			}
		}
	}

	return input, nil
}

// importOwner finds or creates the fixed identity import rows are attributed
// to. The original design used a placeholder instead of the session user;
// kept, but made explicit and configurable via IMPORT_OWNER_EMAIL.
func importOwner() (*models.User, error) {
	email := os.Getenv("IMPORT_OWNER_EMAIL")
	if email == "" {
		email = "import@demo.local"
	}

	var user models.User
	err := storage.DB.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{Email: email, Name: "import"}
		if createErr := storage.DB.Create(&user).Error; createErr != nil {
			return nil, createErr
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

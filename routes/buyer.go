package routes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohitmourya42infinite/buyer-lead-intake/models"
	"github.com/mohitmourya42infinite/buyer-lead-intake/services"
	"github.com/mohitmourya42infinite/buyer-lead-intake/storage"
	"github.com/mohitmourya42infinite/buyer-lead-intake/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	buyerPageSize   = 10
	writeRateLimit  = 20
	writeRateWindow = time.Minute
)

var limiter services.RateLimiter = services.NewMemoryRateLimiter()

// SetRateLimiter swaps the keyed counter guarding write endpoints, e.g. for
// a Redis-backed limiter when running multiple instances.
func SetRateLimiter(l services.RateLimiter) {
	limiter = l
}

func checkWriteRate(ctx iris.Context, action string) bool {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	key := fmt.Sprintf("%d:%s:%s", claims.ID, utils.ClientIP(ctx), action)
	ok, retryAfter := limiter.Check(key, writeRateLimit, writeRateWindow)
	if !ok {
		seconds := int(retryAfter.Seconds())
		if retryAfter > 0 && seconds == 0 {
			seconds = 1
		}
		ctx.Header("Retry-After", fmt.Sprintf("%d", seconds))
		ctx.StopWithJSON(iris.StatusTooManyRequests, iris.Map{
			"error":        "Rate limit",
			"retryAfterMs": retryAfter.Milliseconds(),
		})
	}
	return ok
}

func CreateBuyer(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	if !checkWriteRate(ctx, "create") {
		return
	}

	var input models.BuyerInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var owner models.User
	if err := storage.DB.First(&owner, claims.ID).Error; err != nil {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "unknown session user", ctx)
		return
	}

	buyer := buyerFromInput(input, owner.ID)

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(buyer).Error; err != nil {
			return err
		}
		fields, err := json.Marshal(iris.Map{"created": true, "fields": buyer})
		if err != nil {
			return err
		}
		history := models.BuyerHistory{
			BuyerID:   buyer.ID,
			ChangedBy: owner.ID,
			Diff:      datatypes.JSON(fields),
		}
		return tx.Create(&history).Error
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"buyer": buyer})
}

// BuyerListItem is the projected subset of fields the list view carries;
// notes and tags are deliberately excluded.
type BuyerListItem struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone"`
	City         string    `json:"city"`
	PropertyType string    `json:"propertyType"`
	BudgetMin    *int      `json:"budgetMin"`
	BudgetMax    *int      `json:"budgetMax"`
	Timeline     string    `json:"timeline"`
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// buyerFilterQuery builds the shared filter predicate used by both the list
// and export endpoints: free-text q over name/phone/email plus exact enum
// filters.
func buyerFilterQuery(ctx iris.Context) *gorm.DB {
	q := storage.DB.Model(&models.Buyer{})

	if search := strings.TrimSpace(ctx.URLParam("q")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("lower(full_name) LIKE ? OR phone LIKE ? OR lower(email) LIKE ?",
			like, "%"+search+"%", like)
	}
	if city := strings.TrimSpace(ctx.URLParam("city")); city != "" {
		q = q.Where("city = ?", city)
	}
	if propertyType := strings.TrimSpace(ctx.URLParam("propertyType")); propertyType != "" {
		q = q.Where("property_type = ?", propertyType)
	}
	if status := strings.TrimSpace(ctx.URLParam("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	if timeline := strings.TrimSpace(ctx.URLParam("timeline")); timeline != "" {
		// the query param carries the UI token; accept the storage token too
		if encoded := utils.EncodeTimeline(timeline); encoded != "" {
			q = q.Where("timeline = ?", encoded)
		} else {
			q = q.Where("timeline = ?", timeline)
		}
	}

	return q
}

func ListBuyers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	if page < 1 {
		page = 1
	}

	q := buyerFilterQuery(ctx)

	var total int64
	q.Count(&total)

	var items []BuyerListItem
	err := q.Select("id, full_name, phone, city, property_type, budget_min, budget_max, timeline, status, updated_at").
		Order("updated_at DESC").
		Offset((page - 1) * buyerPageSize).
		Limit(buyerPageSize).
		Find(&items).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"total":    total,
		"page":     page,
		"pageSize": buyerPageSize,
		"items":    items,
	})
}

func GetBuyer(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var buyer models.Buyer
	result := storage.DB.Where("id = ?", id).Find(&buyer)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	var history []models.BuyerHistory
	if err := storage.DB.Where("buyer_id = ?", id).
		Order("changed_at DESC").
		Limit(5).
		Find(&history).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"buyer": &buyer, "history": history})
}

type UpdateBuyerInput struct {
	models.BuyerInput
	UpdatedAt string `json:"updatedAt"`
}

func UpdateBuyer(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id := ctx.Params().Get("id")

	if !checkWriteRate(ctx, "update") {
		return
	}

	var input UpdateBuyerInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if input.UpdatedAt == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Missing updatedAt", ctx)
		return
	}
	token, parseErr := time.Parse(time.RFC3339Nano, input.UpdatedAt)
	if parseErr != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid updatedAt", ctx)
		return
	}

	var existing models.Buyer
	result := storage.DB.Where("id = ?", id).Find(&existing)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	if existing.OwnerID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	// optimistic concurrency: the client token must match the stored value
	// to the millisecond, otherwise the record moved underneath them
	if token.UnixMilli() != existing.UpdatedAt.UnixMilli() {
		utils.CreateError(iris.StatusConflict, "Conflict", "Record changed, please refresh", ctx)
		return
	}

	updated := existing
	applyInput(&updated, input.BuyerInput)
	diff := buyerDiff(&existing, &updated)

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		diffJSON, err := json.Marshal(diff)
		if err != nil {
			return err
		}
		history := models.BuyerHistory{
			BuyerID:   updated.ID,
			ChangedBy: claims.ID,
			Diff:      datatypes.JSON(diffJSON),
		}
		return tx.Create(&history).Error
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"buyer": &updated})
}

// buyerFromInput maps a validated UI-facing payload onto a storage record:
// blank optionals become NULL, enum tokens are encoded, status defaults to
// New.
func buyerFromInput(input models.BuyerInput, ownerID uint) *models.Buyer {
	buyer := &models.Buyer{
		FullName:     input.FullName,
		Phone:        input.Phone,
		City:         input.City,
		PropertyType: input.PropertyType,
		Purpose:      input.Purpose,
		BudgetMin:    input.BudgetMin,
		BudgetMax:    input.BudgetMax,
		Timeline:     utils.EncodeTimeline(input.Timeline),
		Source:       utils.EncodeSource(input.Source),
		Status:       input.Status,
		OwnerID:      ownerID,
	}
	if buyer.Status == "" {
		buyer.Status = "New"
	}
	if input.Email != "" {
		email := input.Email
		buyer.Email = &email
	}
	if input.BHK != "" {
		bhk := utils.EncodeBHK(input.BHK)
		buyer.BHK = &bhk
	}
	if input.Notes != "" {
		notes := input.Notes
		buyer.Notes = &notes
	}
	if len(input.Tags) > 0 {
		tags, _ := json.Marshal(input.Tags)
		buyer.Tags = datatypes.JSON(tags)
	}
	return buyer
}

func applyInput(buyer *models.Buyer, input models.BuyerInput) {
	mapped := buyerFromInput(input, buyer.OwnerID)
	buyer.FullName = mapped.FullName
	buyer.Email = mapped.Email
	buyer.Phone = mapped.Phone
	buyer.City = mapped.City
	buyer.PropertyType = mapped.PropertyType
	buyer.BHK = mapped.BHK
	buyer.Purpose = mapped.Purpose
	buyer.BudgetMin = mapped.BudgetMin
	buyer.BudgetMax = mapped.BudgetMax
	buyer.Timeline = mapped.Timeline
	buyer.Source = mapped.Source
	buyer.Notes = mapped.Notes
	buyer.Tags = mapped.Tags
	buyer.Status = mapped.Status
}

type fieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// buyerDiff records only the fields whose value changed, old vs new.
func buyerDiff(old, updated *models.Buyer) map[string]fieldChange {
	diff := map[string]fieldChange{}

	str := func(name, from, to string) {
		if from != to {
			diff[name] = fieldChange{From: from, To: to}
		}
	}
	strPtr := func(name string, from, to *string) {
		if !strPtrEqual(from, to) {
			diff[name] = fieldChange{From: strPtrValue(from), To: strPtrValue(to)}
		}
	}
	intPtr := func(name string, from, to *int) {
		if !intPtrEqual(from, to) {
			diff[name] = fieldChange{From: intPtrValue(from), To: intPtrValue(to)}
		}
	}

	str("fullName", old.FullName, updated.FullName)
	strPtr("email", old.Email, updated.Email)
	str("phone", old.Phone, updated.Phone)
	str("city", old.City, updated.City)
	str("propertyType", old.PropertyType, updated.PropertyType)
	strPtr("bhk", old.BHK, updated.BHK)
	str("purpose", old.Purpose, updated.Purpose)
	intPtr("budgetMin", old.BudgetMin, updated.BudgetMin)
	intPtr("budgetMax", old.BudgetMax, updated.BudgetMax)
	str("timeline", old.Timeline, updated.Timeline)
	str("source", old.Source, updated.Source)
	strPtr("notes", old.Notes, updated.Notes)
	str("status", old.Status, updated.Status)

	if string(old.Tags) != string(updated.Tags) {
		diff["tags"] = fieldChange{From: old.TagList(), To: updated.TagList()}
	}

	return diff
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrValue(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mohitmourya42infinite/buyer-lead-intake/models"
	"github.com/mohitmourya42infinite/buyer-lead-intake/services"
	"github.com/mohitmourya42infinite/buyer-lead-intake/storage"
	"github.com/mohitmourya42infinite/buyer-lead-intake/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	// a single connection keeps every statement on the same in-memory db
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Buyer{}, &models.BuyerHistory{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	storage.DB = db
	return db
}

// buildBuyerTestApp wires the buyer routes behind a JWT verifier over a
// fresh sqlite-backed store and a fresh in-memory limiter.
func buildBuyerTestApp(t *testing.T) *iris.Application {
	t.Helper()

	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	setupTestDB(t)
	SetRateLimiter(services.NewMemoryRateLimiter())

	app := iris.New()
	app.Validator = utils.Validate

	verifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	verifierMiddleware := verifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	buyers := app.Party("/api/buyers", verifierMiddleware)
	{
		buyers.Get("/", ListBuyers)
		buyers.Post("/", CreateBuyer)
		buyers.Get("/export", ExportBuyers)
		buyers.Post("/import", ImportBuyers)
		buyers.Get("/{id}", GetBuyer)
		buyers.Put("/{id}", UpdateBuyer)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app
}

func createTestUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, Name: "test"}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func signTestToken(t *testing.T, user *models.User) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(token)
}

func doRequest(t *testing.T, app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	contentType := ""
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(v))
		contentType = "text/csv"
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
}

func validBuyerInput() models.BuyerInput {
	return models.BuyerInput{
		FullName:     "Asha Verma",
		Phone:        "9876543210",
		City:         "Mohali",
		PropertyType: "Plot",
		Purpose:      "Buy",
		Timeline:     "3-6m",
		Source:       "Website",
	}
}

func seedBuyer(t *testing.T, ownerID uint, mutate func(*models.BuyerInput)) *models.Buyer {
	t.Helper()
	input := validBuyerInput()
	if mutate != nil {
		mutate(&input)
	}
	buyer := buyerFromInput(input, ownerID)
	if err := storage.DB.Create(buyer).Error; err != nil {
		t.Fatalf("seed buyer: %v", err)
	}
	return buyer
}

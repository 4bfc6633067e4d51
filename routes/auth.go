package routes

import (
	"errors"
	"strings"

	"github.com/mohitmourya42infinite/buyer-lead-intake/models"
	"github.com/mohitmourya42infinite/buyer-lead-intake/storage"
	"github.com/mohitmourya42infinite/buyer-lead-intake/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type SignInInput struct {
	Email string `json:"email" validate:"required,email"`
}

// SignIn finds or creates a user by email and issues a token pair. Single
// credential mechanism: no password, no verification, the email is trusted
// as-is (demo auth).
func SignIn(ctx iris.Context) {
	var input SignInInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	err := storage.DB.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		name := email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
		user = models.User{Email: email, Name: name}
		if createErr := storage.DB.Create(&user).Error; createErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	} else if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	tokenPair, tokenErr := utils.CreateTokenPair(&user)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"user":         user,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

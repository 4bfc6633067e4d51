package main

import (
	"log"
	"os"

	"github.com/mohitmourya42infinite/buyer-lead-intake/logger"
	"github.com/mohitmourya42infinite/buyer-lead-intake/routes"
	"github.com/mohitmourya42infinite/buyer-lead-intake/services"
	"github.com/mohitmourya42infinite/buyer-lead-intake/storage"
	"github.com/mohitmourya42infinite/buyer-lead-intake/utils"

	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"go.uber.org/zap"
)

func main() {
	godotenv.Load()

	zlog, err := logger.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), "buyer-lead-intake")
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	storage.InitializeDB()
	storage.InitializeRedis()

	// the limiter stays in process memory unless a shared store is available
	if storage.Redis != nil {
		routes.SetRateLimiter(services.NewRedisRateLimiter(storage.Redis))
		zlog.Info("rate limiter backed by redis")
	}

	app := iris.New()
	app.Validator = utils.Validate

	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	auth := app.Party("/api/auth")
	{
		auth.Post("/signin", routes.SignIn)
		auth.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
	}

	buyers := app.Party("/api/buyers", accessTokenVerifierMiddleware)
	{
		buyers.Get("/", routes.ListBuyers)
		buyers.Post("/", routes.CreateBuyer)
		buyers.Get("/export", routes.ExportBuyers)
		buyers.Post("/import", routes.ImportBuyers)
		buyers.Get("/{id}", routes.GetBuyer)
		buyers.Put("/{id}", routes.UpdateBuyer)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	zlog.Info("server starting", zap.String("port", port))
	if err := app.Listen(":" + port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

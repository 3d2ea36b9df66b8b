package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hokkyo/photoframe/backend/internal/auth"
	"github.com/hokkyo/photoframe/backend/internal/crypto"
	"github.com/hokkyo/photoframe/backend/internal/drive"
	"github.com/hokkyo/photoframe/backend/internal/handler"
	"github.com/hokkyo/photoframe/backend/internal/secret"
	"github.com/hokkyo/photoframe/backend/internal/settings"
	"github.com/hokkyo/photoframe/backend/internal/slideshow"
	"github.com/hokkyo/photoframe/backend/internal/store"
)

// statusPollInterval is how often the poller re-checks the session state to
// announce sign-in and sign-out transitions.
const statusPollInterval = 2 * time.Second

// App holds the dependencies for the Lambda function.
type App struct {
	authHandler      *handler.AuthHandler
	photoHandler     *handler.PhotoHandler
	settingsHandler  *handler.SettingsHandler
	slideshowHandler *handler.SlideshowHandler
	controller       *slideshow.Controller
	poller           *auth.Poller
	apiGatewaySecret string
}

// NewApp initializes the application dependencies.
func NewApp(ctx context.Context) *App {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}

	frameID := os.Getenv("FRAME_ID")
	if frameID == "" {
		frameID = "default"
	}

	// ---------- Store Backend ----------
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		if os.Getenv("DEV_MODE") == "true" {
			backend = "memory"
		} else {
			backend = "dynamo"
		}
	}

	var st store.Store
	switch backend {
	case "dynamo":
		tableName := os.Getenv("FRAME_STATE_TABLE")
		if tableName == "" {
			tableName = "FrameState"
		}
		st = store.NewDynamo(dynamodb.NewFromConfig(cfg), tableName, frameID)
		fmt.Printf("Using DynamoDB store (table=%s frame=%s)\n", tableName, frameID)
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		redisStore, err := store.NewRedis(addr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			panic(fmt.Sprintf("unable to connect to redis at %s: %v", addr, err))
		}
		st = store.NewScoped(redisStore, frameID)
		fmt.Printf("Using Redis store (addr=%s frame=%s)\n", addr, frameID)
	default:
		st = store.NewScoped(store.NewMemory(), frameID)
		fmt.Println("Using In-Memory store")
	}

	// ---------- Encryptor ----------
	var encryptor crypto.Encryptor
	if os.Getenv("DEV_MODE") == "true" {
		encryptor = crypto.NewMockEncryptor()
		fmt.Println("Using MockEncryptor (DEV_MODE=true)")
	} else {
		kmsKeyID := os.Getenv("KMS_KEY_ID")
		if kmsKeyID == "" {
			kmsKeyID = "alias/photoframe-token-key"
		}
		encryptor = crypto.NewKMSEncryptor(kms.NewFromConfig(cfg), kmsKeyID)
	}

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if os.Getenv("DEV_MODE") == "true" {
		resolver = secret.NewEnvResolver()
		fmt.Println("Using EnvResolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
		fmt.Println("Using SSMResolver (SSM Parameter Store)")
	}

	oauthClientSecretParam := os.Getenv("OAUTH_CLIENT_SECRET_PARAM")
	if oauthClientSecretParam == "" {
		oauthClientSecretParam = "/photoframe/oauth-client-secret"
	}
	oauthClientSecret, err := resolver.GetSecret(ctx, oauthClientSecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve OAUTH_CLIENT_SECRET: %v", err)
	}

	jwtSecretParam := os.Getenv("JWT_SECRET_PARAM")
	if jwtSecretParam == "" {
		jwtSecretParam = "/photoframe/jwt-secret"
	}
	jwtSecret, err := resolver.GetSecret(ctx, jwtSecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve JWT_SECRET: %v", err)
		jwtSecret = "default-dev-secret"
	}

	apiGatewaySecretParam := os.Getenv("API_GATEWAY_SECRET_PARAM")
	if apiGatewaySecretParam == "" {
		apiGatewaySecretParam = "/photoframe/api-gateway-secret"
	}
	apiGatewaySecret, err := resolver.GetSecret(ctx, apiGatewaySecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve API_GATEWAY_SECRET: %v", err)
	}

	// ---------- OAuth2 Config ----------
	redirectURL := os.Getenv("OAUTH_REDIRECT_URL")
	if redirectURL == "" {
		if os.Getenv("DEV_MODE") == "true" {
			redirectURL = "http://localhost:8080/auth/callback"
		} else {
			frontendURL := os.Getenv("FRONTEND_URL")
			if frontendURL == "" {
				frontendURL = "http://localhost:3000"
			}
			redirectURL = frontendURL + "/api/auth/callback"
		}
	}

	oauthConfig := &oauth2.Config{
		ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		ClientSecret: oauthClientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/drive.readonly",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	// ---------- Services ----------
	lister := drive.NewLister()
	notifier := auth.NewNotifier()
	authService := auth.NewService(oauthConfig, st, encryptor, lister, notifier)
	settingsService := settings.NewService(st)
	aggregator := slideshow.NewAggregator(lister, settingsService)

	// Adopt whatever survived the last run: the persisted session first,
	// then any authorization attempt cut short by a restart.
	if err := authService.RestoreSession(ctx); err != nil {
		log.Printf("WARNING: failed to restore session: %v", err)
	}
	if err := authService.RecoverPendingAuthorization(ctx); err != nil {
		log.Printf("WARNING: failed to recover pending authorization: %v", err)
	}

	prefs, err := settingsService.Preferences(ctx)
	if err != nil {
		log.Printf("WARNING: failed to read preferences, using defaults: %v", err)
		prefs.IntervalSeconds = 10
	}
	controller := slideshow.NewController(time.Duration(prefs.IntervalSeconds) * time.Second)

	poller := auth.NewPoller(authService, notifier, statusPollInterval)
	poller.Start()

	return &App{
		authHandler:      handler.NewAuthHandler(authService, jwtSecret),
		photoHandler:     handler.NewPhotoHandler(aggregator, settingsService, lister, jwtSecret),
		settingsHandler:  handler.NewSettingsHandler(settingsService, jwtSecret),
		slideshowHandler: handler.NewSlideshowHandler(controller, aggregator, settingsService, jwtSecret),
		controller:       controller,
		poller:           poller,
		apiGatewaySecret: apiGatewaySecret,
	}
}

// Close stops the background workers. Used by the local server; the Lambda
// runtime never calls it.
func (app *App) Close() {
	app.poller.Stop()
	app.controller.Close()
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	fmt.Printf("Request: %s %s\n", method, path)

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Security: Verify Request Origin (CloudFront only)
	// Skip check for OPTIONS (preflight) and if DEV_MODE is true
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			fmt.Printf("Security Block: Missing or invalid X-Origin-Verify header\n")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Router logic
	// Strip /api prefix if present (for CloudFront proxying)
	if strings.HasPrefix(path, "/api") {
		path = strings.TrimPrefix(path, "/api")
	}

	// /auth
	if strings.HasPrefix(path, "/auth") {
		if path == "/auth/login" && method == "GET" {
			return corsResponse(must(app.authHandler.Login(ctx, req))), nil
		}
		if path == "/auth/callback" && method == "GET" {
			return corsResponse(must(app.authHandler.Callback(ctx, req))), nil
		}
		if path == "/auth/logout" && method == "POST" {
			return corsResponse(must(app.authHandler.Logout(ctx, req))), nil
		}
		if path == "/auth/user" && method == "GET" {
			return corsResponse(must(app.authHandler.GetUser(ctx, req))), nil
		}
		if path == "/auth/status" && method == "GET" {
			return corsResponse(must(app.authHandler.Status(ctx, req))), nil
		}
	}

	// /photos
	if path == "/photos" && method == "GET" {
		return corsResponse(must(app.photoHandler.ListPhotos(ctx, req))), nil
	}

	// /folders
	if path == "/folders" && method == "GET" {
		return corsResponse(must(app.photoHandler.ListFolders(ctx, req))), nil
	}

	// /settings
	if path == "/settings" && method == "GET" {
		return corsResponse(must(app.settingsHandler.GetSettings(ctx, req))), nil
	}
	if path == "/settings" && method == "PATCH" {
		return corsResponse(must(app.settingsHandler.UpdateSettings(ctx, req))), nil
	}

	// /slideshow
	if strings.HasPrefix(path, "/slideshow") {
		if path == "/slideshow" && method == "GET" {
			return corsResponse(must(app.slideshowHandler.Status(ctx, req))), nil
		}
		if method == "POST" {
			switch path {
			case "/slideshow/refresh":
				return corsResponse(must(app.slideshowHandler.Refresh(ctx, req))), nil
			case "/slideshow/play":
				return corsResponse(must(app.slideshowHandler.Play(ctx, req))), nil
			case "/slideshow/pause":
				return corsResponse(must(app.slideshowHandler.Pause(ctx, req))), nil
			case "/slideshow/next":
				return corsResponse(must(app.slideshowHandler.Next(ctx, req))), nil
			case "/slideshow/previous":
				return corsResponse(must(app.slideshowHandler.Previous(ctx, req))), nil
			}
		}
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = os.Getenv("FRONTEND_URL")
	if resp.Headers["Access-Control-Allow-Origin"] == "" {
		resp.Headers["Access-Control-Allow-Origin"] = "http://localhost:3000"
	}
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,DELETE,OPTIONS,PATCH"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, ignoring the error.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		fmt.Printf("Handler error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}

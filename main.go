package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"firmdesk/auth"
	"firmdesk/config"
	"firmdesk/controllers"
	"firmdesk/database"
	"firmdesk/registry"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// requestLogger logs every request after processing is completed.
func requestLogger(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		latency := time.Since(startTime)
		logger.Info("Request",
			zap.String("method", req.Request.Method),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", latency),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("path", req.Request.URL.Path),
		)
	}
}

func main() {
	// Initialize configs
	config.InitConfig()

	var logger *zap.Logger
	switch config.AppConfig.LogLevel {
	case "debug":
		logger, _ = zap.NewDevelopment()
	case "info":
		logger, _ = zap.NewProduction()
	default:
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync() // Make sure the buffer is flushed before the program exits

	auth.SetSigningKey([]byte(config.AppConfig.JwtSecret))

	tenants := database.NewRegistry(config.AppConfig.Database, config.AppConfig.DefaultTenant, logger.Sugar())

	// Migrate and seed the default tenant so a fresh deployment is usable.
	db, release, err := tenants.Open(tenants.DefaultTenant())
	if err != nil {
		logger.Fatal("Failed to connect to default tenant database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		release()
		logger.Fatal("Failed to migrate default tenant database", zap.Error(err))
	}
	database.SeedInitialData(db)
	release()

	container := restful.NewContainer()
	container.Filter(requestLogger(logger))
	container.RecoverHandler(func(rec interface{}, w http.ResponseWriter) {
		logger.Error("Panic recovered", zap.Any("panic", rec))
		w.Header().Set("Content-Type", restful.MIME_JSON)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(controllers.Envelope{Status: false, Message: "Internal Server Error"})
	})

	// --- Public routes: login and the consul health check ---
	publicWS := new(restful.WebService)
	publicWS.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	publicWS.Route(publicWS.POST("/login").To(auth.LoginRouteHandler(tenants)).
		Doc("Authenticate against a tenant and obtain a bearer token").
		Metadata(restfulspec.KeyOpenAPITags, []string{"auth"}).
		Reads(auth.LoginCredentials{}))
	publicWS.Route(publicWS.GET("/health").To(func(req *restful.Request, resp *restful.Response) {
		_ = resp.WriteHeaderAndJson(http.StatusOK, controllers.Envelope{Status: true}, restful.MIME_JSON)
	}).Doc("Health check"))
	container.Add(publicWS)

	// --- Permission-management surface ---
	permissionWS := new(restful.WebService)
	controllers.NewPermissionController(tenants).RegisterRoutes(permissionWS)
	container.Add(permissionWS)

	// --- Generic CRUD resources ---
	for _, def := range controllers.ResourceDefs {
		ws := new(restful.WebService)
		controllers.NewResourceController(tenants, def).RegisterRoutes(ws)
		container.Add(ws)
	}

	// OpenAPI documentation for all registered services
	specConfig := restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))

	// Optional service registration
	if config.AppConfig.Consul.Enabled {
		consul, err := registry.NewConsulRegistry(config.AppConfig.Consul.Address, logger.Sugar())
		if err != nil {
			logger.Warn("Consul registration skipped", zap.Error(err))
		} else {
			hostname, _ := os.Hostname()
			serviceID := fmt.Sprintf("%s-%s-%d", config.AppConfig.ServiceName, hostname, config.AppConfig.HTTPPort)
			check := registry.CreateHTTPCheck(serviceID, hostname, config.AppConfig.HTTPPort, "/health", "10s", "1s")
			if err := consul.Register(serviceID, config.AppConfig.ServiceName, hostname, config.AppConfig.HTTPPort, []string{"http"}, check); err != nil {
				logger.Warn("Consul registration failed", zap.Error(err))
			} else {
				defer func() {
					if err := consul.Deregister(serviceID); err != nil {
						logger.Warn("Consul deregistration failed", zap.Error(err))
					}
				}()
			}
		}
	}

	addr := fmt.Sprintf(":%d", config.AppConfig.HTTPPort)
	logger.Info("Starting server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, container); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

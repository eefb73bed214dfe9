package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/fulfillment-service/pkg/api"
	"github.com/warehouse-ops/fulfillment-service/pkg/errors"
	"github.com/warehouse-ops/fulfillment-service/pkg/idempotency"
	"github.com/warehouse-ops/fulfillment-service/pkg/kafka"
	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
	"github.com/warehouse-ops/fulfillment-service/pkg/middleware"
	"github.com/warehouse-ops/fulfillment-service/pkg/mongodb"
	"github.com/warehouse-ops/fulfillment-service/pkg/outbox"
	outboxMongo "github.com/warehouse-ops/fulfillment-service/pkg/outbox/mongodb"
	"github.com/warehouse-ops/fulfillment-service/pkg/tracing"

	"github.com/warehouse-ops/fulfillment-service/internal/application"
	"github.com/warehouse-ops/fulfillment-service/internal/domain"
	mongoStore "github.com/warehouse-ops/fulfillment-service/internal/infrastructure/mongodb"
	"github.com/warehouse-ops/fulfillment-service/internal/infrastructure/renderer"
	syncmirror "github.com/warehouse-ops/fulfillment-service/internal/infrastructure/sync"
)

const serviceName = "fulfillment-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment-service API")

	config := loadConfig()
	ctx := context.Background()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	store, err := mongoStore.NewStore(ctx, mongoClient, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize store")
		os.Exit(1)
	}

	outboxRepo := outboxMongo.NewOutboxRepository(mongoClient.Database())
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to ensure outbox indexes")
	}

	if err := idempotency.InitializeIndexes(ctx, mongoClient.Database()); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	}
	idempotencyKeyRepo := idempotency.NewMongoKeyRepository(mongoClient.Database())

	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	outboxPublisher := outbox.NewPublisher(outboxRepo, kafkaProducer, logger, m, &outbox.PublisherConfig{
		PollInterval: 1 * time.Second,
		BatchSize:    100,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	notifier := syncmirror.NewNotifier(syncmirror.DefaultConfig(config.MirrorBaseURL), logger, m)
	rendererClient := renderer.NewClient(renderer.DefaultConfig(config.RendererBaseURL), logger)

	shipmentService := application.NewShipmentService(store, outboxRepo, notifier, logger, m)
	returnService := application.NewReturnService(store, outboxRepo, notifier, rendererClient, logger, m)
	inventoryService := application.NewInventoryService(store, outboxRepo, notifier, logger, m)

	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	idempotencyConfig := idempotency.DefaultConfig(serviceName, idempotencyKeyRepo)
	idempotencyConfig.Metrics = idempotency.NewMetrics(m.Registry())

	api := router.Group("/api/v1")
	api.Use(middleware.TenantAuth(nil))
	api.Use(idempotency.Middleware(idempotencyConfig))
	{
		api.POST("/shipment-requests/:requestId/confirm", confirmShipmentHandler(shipmentService, logger))
		api.POST("/shipment-requests/:requestId/reject", rejectShipmentHandler(shipmentService, logger))
		api.GET("/shipment-requests/:requestId", getShipmentHandler(shipmentService, logger))

		api.POST("/returns/:returnId/approve", approveReturnHandler(returnService, logger))
		api.POST("/returns/:returnId/cancel", cancelReturnHandler(returnService, logger))
		api.POST("/returns/:returnId/receive", receiveReturnHandler(returnService, logger))
		api.POST("/returns/:returnId/ship", shipReturnHandler(returnService, logger))
		api.POST("/returns/:returnId/close", closeReturnHandler(returnService, logger))
		api.GET("/returns/:returnId", getReturnHandler(returnService, logger))

		api.POST("/inventory", createItemHandler(inventoryService, logger))
		api.GET("/inventory", listInventoryHandler(inventoryService, logger))
		api.GET("/inventory/:productId", getItemHandler(inventoryService, logger))
		api.PUT("/inventory/:productId", editItemHandler(inventoryService, logger))
		api.POST("/inventory/:productId/restock", restockHandler(inventoryService, logger))
		api.POST("/inventory/:productId/recycle", recycleHandler(inventoryService, logger))
		api.DELETE("/inventory/:productId", deleteItemHandler(inventoryService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	MirrorBaseURL   string
	RendererBaseURL string
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8010"),
		MirrorBaseURL:   getEnv("MIRROR_BASE_URL", "http://localhost:8020"),
		RendererBaseURL: getEnv("RENDERER_BASE_URL", "http://localhost:8021"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "fulfillment_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
			ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func tenantID(c *gin.Context) string {
	return middleware.GetTenantContext(c).AccountID
}

func respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}

func confirmShipmentHandler(service *application.ShipmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ConfirmedBy  string                     `json:"confirmedBy" binding:"required"`
			AdminRemarks string                     `json:"adminRemarks"`
			Services     *domain.AdditionalServices `json:"adminAdditionalServices"`
			Overrides    *domain.ConfirmOverrides   `json:"overrides"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ConfirmShipmentCommand{
			TenantID:     tenantID(c),
			RequestID:    c.Param("requestId"),
			ConfirmedBy:  req.ConfirmedBy,
			AdminRemarks: req.AdminRemarks,
			Services:     req.Services,
			Overrides:    req.Overrides,
		}

		result, err := service.Confirm(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func rejectShipmentHandler(service *application.ShipmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			RejectedBy string `json:"rejectedBy" binding:"required"`
			Reason     string `json:"reason" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.RejectShipmentCommand{
			TenantID:   tenantID(c),
			RequestID:  c.Param("requestId"),
			RejectedBy: req.RejectedBy,
			Reason:     req.Reason,
		}

		request, err := service.Reject(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, request)
	}
}

func getShipmentHandler(service *application.ShipmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetShipmentRequestQuery{
			TenantID:  tenantID(c),
			RequestID: c.Param("requestId"),
		}

		request, err := service.Get(c.Request.Context(), query)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, request)
	}
}

func approveReturnHandler(service *application.ReturnService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ApprovedBy string `json:"approvedBy" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ApproveReturnCommand{
			TenantID:   tenantID(c),
			ReturnID:   c.Param("returnId"),
			ApprovedBy: req.ApprovedBy,
		}

		ret, err := service.Approve(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, ret)
	}
}

func cancelReturnHandler(service *application.ReturnService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			CancelledBy string `json:"cancelledBy" binding:"required"`
			Reason      string `json:"reason" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.CancelReturnCommand{
			TenantID:    tenantID(c),
			ReturnID:    c.Param("returnId"),
			CancelledBy: req.CancelledBy,
			Reason:      req.Reason,
		}

		ret, err := service.Cancel(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, ret)
	}
}

func receiveReturnHandler(service *application.ReturnService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Quantity   int    `json:"quantity" binding:"required,gt=0"`
			ReceivedBy string `json:"receivedBy" binding:"required"`
			Notes      string `json:"notes"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ReceiveReturnCommand{
			TenantID:   tenantID(c),
			ReturnID:   c.Param("returnId"),
			Quantity:   req.Quantity,
			ReceivedBy: req.ReceivedBy,
			Notes:      req.Notes,
		}

		ret, err := service.Receive(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, ret)
	}
}

func shipReturnHandler(service *application.ReturnService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Quantity      int     `json:"quantity" binding:"required,gt=0"`
			ShippedBy     string  `json:"shippedBy" binding:"required"`
			Notes         string  `json:"notes"`
			CreateInvoice bool    `json:"createInvoice"`
			UnitPrice     float64 `json:"unitPrice"`
			TotalCost     float64 `json:"totalCost"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ShipReturnCommand{
			TenantID:      tenantID(c),
			ReturnID:      c.Param("returnId"),
			Quantity:      req.Quantity,
			ShippedBy:     req.ShippedBy,
			Notes:         req.Notes,
			CreateInvoice: req.CreateInvoice,
			UnitPrice:     req.UnitPrice,
			TotalCost:     req.TotalCost,
		}

		ret, err := service.Ship(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, ret)
	}
}

func closeReturnHandler(service *application.ReturnService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ClosedBy          string  `json:"closedBy" binding:"required"`
			ReturnFee         float64 `json:"returnFee"`
			PackingFee        float64 `json:"packingFee"`
			PalletFee         float64 `json:"palletFee"`
			ShippingUnitPrice float64 `json:"shippingUnitPrice"`
			CreateInvoice     bool    `json:"createInvoice"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.CloseReturnCommand{
			TenantID:          tenantID(c),
			ReturnID:          c.Param("returnId"),
			ClosedBy:          req.ClosedBy,
			ReturnFee:         req.ReturnFee,
			PackingFee:        req.PackingFee,
			PalletFee:         req.PalletFee,
			ShippingUnitPrice: req.ShippingUnitPrice,
			CreateInvoice:     req.CreateInvoice,
		}

		result, err := service.Close(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getReturnHandler(service *application.ReturnService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetReturnQuery{
			TenantID: tenantID(c),
			ReturnID: c.Param("returnId"),
		}

		ret, err := service.Get(c.Request.Context(), query)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, ret)
	}
}

func createItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ProductName string `json:"productName" binding:"required"`
			Quantity    int    `json:"quantity" binding:"gte=0"`
			ExternalRef string `json:"externalRef"`
			CreatedBy   string `json:"createdBy" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.CreateItemCommand{
			TenantID:    tenantID(c),
			ProductName: req.ProductName,
			Quantity:    req.Quantity,
			ExternalRef: req.ExternalRef,
			CreatedBy:   req.CreatedBy,
		}

		item, err := service.Create(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

func getItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetItemQuery{
			TenantID:  tenantID(c),
			ProductID: c.Param("productId"),
		}

		item, err := service.Get(c.Request.Context(), query)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func listInventoryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pageReq := api.ParsePagination(c)

		query := application.ListItemsQuery{
			TenantID: tenantID(c),
			Limit:    int(pageReq.Limit()),
			Offset:   int(pageReq.Offset()),
		}

		items, total, err := service.List(c.Request.Context(), query)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(items, pageReq.Page, pageReq.PageSize, total))
	}
}

func editItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ProductName string `json:"productName" binding:"required"`
			Quantity    int    `json:"quantity" binding:"gte=0"`
			EditedBy    string `json:"editedBy" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.EditItemCommand{
			TenantID:    tenantID(c),
			ProductID:   c.Param("productId"),
			ProductName: req.ProductName,
			Quantity:    req.Quantity,
			EditedBy:    req.EditedBy,
		}

		item, err := service.Edit(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func restockHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Quantity    int    `json:"quantity" binding:"required,gt=0"`
			RestockedBy string `json:"restockedBy" binding:"required"`
			Notes       string `json:"notes"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.RestockItemCommand{
			TenantID:    tenantID(c),
			ProductID:   c.Param("productId"),
			Quantity:    req.Quantity,
			RestockedBy: req.RestockedBy,
			Notes:       req.Notes,
		}

		item, err := service.Restock(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func recycleHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Reason     string `json:"reason" binding:"required"`
			RecycledBy string `json:"recycledBy" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.RecycleItemCommand{
			TenantID:   tenantID(c),
			ProductID:  c.Param("productId"),
			Reason:     req.Reason,
			RecycledBy: req.RecycledBy,
		}

		if err := service.Recycle(c.Request.Context(), cmd); err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"productId": cmd.ProductID,
			"message":   "Item recycled",
		})
	}
}

func deleteItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Reason    string `json:"reason" binding:"required"`
			DeletedBy string `json:"deletedBy" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.DeleteItemCommand{
			TenantID:  tenantID(c),
			ProductID: c.Param("productId"),
			Reason:    req.Reason,
			DeletedBy: req.DeletedBy,
		}

		if err := service.Delete(c.Request.Context(), cmd); err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"productId": cmd.ProductID,
			"message":   "Item deleted",
		})
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/app"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/aws"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/handlers"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/metrics"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/notify"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	metrics.RegisterDefault()

	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	configPath := flag.String("config", os.Getenv("OMNIKASSA_CONFIG"), "optional YAML config file")
	flag.Parse()

	deps, err := app.Build(context.Background(), *configPath)
	if err != nil {
		log.Fatalf("failed to init api: %v", err)
	}

	dispatcher := inlineDispatcher(deps.Reconciler)
	if deps.Config.QueueURL != "" {
		dispatcher = queueDispatcher(aws.NewPublisher(deps.AWS.SQS, deps.Config.QueueURL))
	}

	r := setupRouter(handlers.HandlerConfig{
		Payments:      deps.Payments,
		Idempotency:   deps.Idempotency,
		Processor:     deps.Client,
		Tokens:        deps.Tokens,
		Notifications: notify.NewNotificationHandler(deps.Key, dispatcher),
		Returns:       notify.NewReturnVerifier(deps.Key, deps.Payments),
		SigningKey:    deps.Key,
		SlugPrefix:    deps.Config.SlugPrefix,
		ReturnURL:     deps.Config.ReturnURL,
	})

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := deps.Config.HTTPAddr
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

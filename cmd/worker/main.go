package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/app"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/aws"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("OMNIKASSA_CONFIG"), "optional YAML config file")
	flag.Parse()

	ctx := context.Background()
	deps, err := app.Build(ctx, *configPath)
	if err != nil {
		log.Fatalf("failed to init worker: %v", err)
	}
	metrics.RegisterDefault()

	p := NewProcessor(deps.Reconciler, aws.NewMetricsPublisher(deps.AWS.CloudWatch))

	// If RUN_LOCAL=true, process a single message taken from LOCAL_SQS_BODY.
	if os.Getenv("RUN_LOCAL") == "true" {
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: os.Getenv("LOCAL_SQS_BODY")},
			},
		}
		resp, err := p.Handle(ctx, event)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			log.Fatalf("local handler error: %v %+v", err, resp.BatchItemFailures)
		}
		return
	}

	lambda.Start(p.Handle)
}

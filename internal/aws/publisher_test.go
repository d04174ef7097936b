package aws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type captureSQS struct {
	inputs []*sqs.SendMessageInput
}

func (c *captureSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	c.inputs = append(c.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

type captureCW struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (c *captureCW) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.inputs = append(c.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestEnqueueReconcile(t *testing.T) {
	q := &captureSQS{}
	p := NewPublisher(q, "https://sqs.eu-west-1.amazonaws.com/123/reconcile")

	err := p.EnqueueReconcile(context.Background(), ReconcileMessage{Authentication: "auth-1", CorrelationID: "corr-1", PoiID: 7})
	if err != nil {
		t.Fatalf("EnqueueReconcile error: %v", err)
	}
	if len(q.inputs) != 1 {
		t.Fatalf("expected one message, got %d", len(q.inputs))
	}
	in := q.inputs[0]
	if *in.QueueUrl != p.QueueURL {
		t.Fatalf("queue url mismatch: %s", *in.QueueUrl)
	}
	var msg ReconcileMessage
	if err := json.Unmarshal([]byte(*in.MessageBody), &msg); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if msg.Authentication != "auth-1" || msg.PoiID != 7 {
		t.Fatalf("unexpected message %+v", msg)
	}
	attr, ok := in.MessageAttributes["correlation_id"]
	if !ok || *attr.StringValue != "corr-1" {
		t.Fatalf("correlation attribute missing: %+v", in.MessageAttributes)
	}
}

func TestPutCounts(t *testing.T) {
	cw := &captureCW{}
	m := NewMetricsPublisher(cw)

	if err := m.PutCounts(context.Background(), nil); err != nil {
		t.Fatalf("empty PutCounts error: %v", err)
	}
	if len(cw.inputs) != 0 {
		t.Fatalf("empty counts must not call CloudWatch")
	}

	if err := m.PutCounts(context.Background(), map[string]float64{"RowsApplied": 3, "UnresolvedOrders": 1}); err != nil {
		t.Fatalf("PutCounts error: %v", err)
	}
	if len(cw.inputs) != 1 || len(cw.inputs[0].MetricData) != 2 {
		t.Fatalf("unexpected calls %+v", cw.inputs)
	}
	if *cw.inputs[0].Namespace != MetricsNamespace {
		t.Fatalf("namespace mismatch: %s", *cw.inputs[0].Namespace)
	}
}

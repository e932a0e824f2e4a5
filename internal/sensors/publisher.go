package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"brineguard/internal/config"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher enqueues sensor readings onto the ingestion queue. Field
// gateways and test tooling use it to feed the sensor worker.
type Publisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewPublisher creates a publisher bound to the sensor readings queue from
// the AWS configuration.
func NewPublisher(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: awsCfg.SensorQueueURL,
		logger:   logger,
	}
}

// Publish serializes the reading to JSON and dispatches it to the ingestion
// queue. The parameter name rides along as a message attribute so queue
// tooling can filter without parsing bodies.
func (p *Publisher) Publish(ctx context.Context, msg ReadingMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("sensors: failed to marshal reading: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"parameter": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Parameter),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("sensors: failed to send reading to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "sensor reading published",
		"queue_url", p.queueURL,
		"asset_id", msg.AssetID,
		"parameter", msg.Parameter,
		"trace_id", msg.TraceID,
	)

	return nil
}

package sensors

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	receiveMaxMessages = 10
	receiveWaitSeconds = 20
	receiveBackoff     = 5 * time.Second
)

// SQSReceiver abstracts the SQS receive and delete operations for
// testability. Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Handler processes one decoded reading. A non-nil error leaves the message
// on the queue for redelivery.
type Handler func(ctx context.Context, msg ReadingMessage) error

// Consumer long-polls the sensor readings queue and feeds each decoded
// reading to the handler. Messages that cannot be decoded or validated are
// deleted rather than retried; they will never become processable.
type Consumer struct {
	client   SQSReceiver
	queueURL string
	handler  Handler
	logger   *slog.Logger
}

// NewConsumer creates a consumer for the given queue URL.
func NewConsumer(client SQSReceiver, queueURL string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		logger:   logger,
	}
}

// Run polls until the context is cancelled. Receive failures back off and
// retry; the only exit path is context cancellation, whose cause is
// returned.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: receiveMaxMessages,
			WaitTimeSeconds:     receiveWaitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.ErrorContext(ctx, "receive from sensor queue failed",
				"queue_url", c.queueURL,
				"error", err,
			)
			select {
			case <-time.After(receiveBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, raw := range out.Messages {
			c.process(ctx, raw)
		}
	}
}

// process decodes and handles one raw queue message, deciding its fate:
// delete on success or permanent failure, leave for redelivery on
// transient handler errors.
func (c *Consumer) process(ctx context.Context, raw sqsTypes.Message) {
	var msg ReadingMessage
	if err := json.Unmarshal([]byte(aws.ToString(raw.Body)), &msg); err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable sensor message",
			"message_id", aws.ToString(raw.MessageId),
			"error", err,
		)
		c.delete(ctx, raw)
		return
	}
	if err := msg.Validate(); err != nil {
		c.logger.WarnContext(ctx, "dropping invalid sensor message",
			"message_id", aws.ToString(raw.MessageId),
			"error", err,
		)
		c.delete(ctx, raw)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "sensor reading handler failed, leaving for redelivery",
			"message_id", aws.ToString(raw.MessageId),
			"asset_id", msg.AssetID,
			"parameter", msg.Parameter,
			"error", err,
		)
		return
	}

	c.delete(ctx, raw)
}

func (c *Consumer) delete(ctx context.Context, raw sqsTypes.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: raw.ReceiptHandle,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to delete sensor message",
			"message_id", aws.ToString(raw.MessageId),
			"error", err,
		)
	}
}

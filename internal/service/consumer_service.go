package service

import (
	"context"
	"encoding/json"
	"errors"

	"textbook-qa-be/internal/dto"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/pkg/rag/indexer"
	"textbook-qa-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "INGEST_CONSUMER"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	indexer    BookIndexer
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ix BookIndexer,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		indexer:    ix,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestBookMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{"error": err})
		msg.Ack() // Redelivery would fail the same way.
		return
	}

	cs.logger.Info(consumerModule, "Processing ingestion", map[string]interface{}{"book_id": payload.BookId.String()})

	report, err := cs.indexer.Run(ctx, indexer.Job{
		BookID:         payload.BookId,
		StoragePath:    payload.StoragePath,
		SkipFirstPages: payload.SkipFirstPages,
	})
	if err != nil {
		if permanent(err) {
			cs.logger.Error(consumerModule, "Ingestion failed permanently", map[string]interface{}{
				"book_id": payload.BookId.String(),
				"error":   err,
			})
			msg.Ack()
			return
		}
		cs.logger.Error(consumerModule, "Ingestion failed, will retry", map[string]interface{}{
			"book_id": payload.BookId.String(),
			"error":   err,
		})
		msg.Nack()
		return
	}

	cs.logger.Info(consumerModule, "Ingestion done", map[string]interface{}{
		"book_id": payload.BookId.String(),
		"status":  string(report.Status),
		"chunks":  report.TotalChunks,
	})
	msg.Ack()
}

// permanent reports failures where a redelivery cannot help.
func permanent(err error) bool {
	return errors.Is(err, indexer.ErrBookNotFound) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, indexer.ErrBookTooLarge) ||
		errors.Is(err, indexer.ErrNoText)
}

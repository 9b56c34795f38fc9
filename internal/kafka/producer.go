package kafka

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// ActivityEvent is the envelope published to the activity topic for
// itinerary and collaboration audit trails.
type ActivityEvent struct {
	Type      string      `json:"type"`
	UserID    uint        `json:"user_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "travelsync"
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{producer: producer, topic: topic}, nil
}

// PublishActivity emits one activity event, keyed by event type so
// events of a kind stay on one partition.
func (p *Producer) PublishActivity(eventType string, userID uint, payload interface{}) error {
	event := ActivityEvent{
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(eventType),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		slog.Error("failed to publish activity event", "type", eventType, "error", err)
		return err
	}

	slog.Debug("activity event published", "type", eventType, "partition", partition, "offset", offset)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

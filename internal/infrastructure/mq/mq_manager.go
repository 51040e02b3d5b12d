package mq

import (
	"time"

	myconfig "clinic_chat_server/internal/config"

	"github.com/segmentio/kafka-go"
)

// CreateTopic creates topic unless it exists.
func CreateTopic(cfg myconfig.KafkaConfig, topic string) error {
	conn, err := kafka.Dial("tcp", cfg.HostPort)
	if err != nil {
		return err
	}
	defer conn.Close()

	partitions := cfg.Partition
	if partitions <= 0 {
		partitions = 1
	}
	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
}

// NewReader builds a consumer group reader on topic.
// All instances share groupID, so each record is handled once.
func NewReader(cfg myconfig.KafkaConfig, topic, groupID string) *kafka.Reader {
	commit := cfg.Timeout * time.Second
	if commit <= 0 {
		commit = time.Second
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.HostPort},
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: commit,
		StartOffset:    kafka.FirstOffset,
	})
}

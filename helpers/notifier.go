package helpers

import (
	"context"
	"encoding/json"
	"fmt"

	gohelpers "github.com/Lineblocs/go-helpers"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const ParticipantLeftEvent = "participant_left"

type ConferenceEvent struct {
	Event        string `json:"event"`
	ConferenceId string `json:"conference_id"`
	CallId       string `json:"call_id"`
	UserUUID     string `json:"user_uuid"`
}

func participantLeft(conferenceId string, callId string, userUUID string) ([]byte, error) {
	return json.Marshal(ConferenceEvent{
		Event:        ParticipantLeftEvent,
		ConferenceId: conferenceId,
		CallId:       callId,
		UserUUID:     userUUID})
}

// redisPublisher is the part of *redis.Client used to publish events.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes conference events on a redis channel.
type RedisNotifier struct {
	Client  redisPublisher
	Channel string
}

func NewRedisNotifier(addr string, password string, channel string) *RedisNotifier {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})
	return &RedisNotifier{Client: rdb, Channel: channel}
}

func (n *RedisNotifier) ParticipantLeft(ctx context.Context, conferenceId string, callId string, userUUID string) error {
	body, err := participantLeft(conferenceId, callId, userUUID)
	if err != nil {
		return err
	}
	return n.Client.Publish(ctx, n.Channel, body).Err()
}

// kafkaProducer is the part of *kafka.Producer used to emit events.
type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// KafkaNotifier produces conference events to a kafka topic.
type KafkaNotifier struct {
	Producer kafkaProducer
	Topic    string
}

func NewKafkaNotifier(servers string, topic string) (*KafkaNotifier, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": servers,
		"client.id":         "lineblocs-conference",
		"acks":              "all"})
	if err != nil {
		return nil, err
	}
	return &KafkaNotifier{Producer: p, Topic: topic}, nil
}

func (n *KafkaNotifier) ParticipantLeft(ctx context.Context, conferenceId string, callId string, userUUID string) error {
	body, err := participantLeft(conferenceId, callId, userUUID)
	if err != nil {
		return err
	}
	topic := n.Topic
	return n.Producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(conferenceId),
		Value:          body},
		nil, // delivery channel
	)
}

// LogNotifier only logs events. Used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) ParticipantLeft(ctx context.Context, conferenceId string, callId string, userUUID string) error {
	gohelpers.Log(logrus.InfoLevel, fmt.Sprintf("participant %s left conference %s (user %s)", callId, conferenceId, userUUID))
	return nil
}

type Notifier interface {
	ParticipantLeft(ctx context.Context, conferenceId string, callId string, userUUID string) error
}

// MultiNotifier fans an event out to every notifier and returns the first
// error after all of them were tried.
type MultiNotifier struct {
	Notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{Notifiers: notifiers}
}

func (m *MultiNotifier) ParticipantLeft(ctx context.Context, conferenceId string, callId string, userUUID string) error {
	var first error
	for _, n := range m.Notifiers {
		if err := n.ParticipantLeft(ctx, conferenceId, callId, userUUID); err != nil {
			gohelpers.Log(logrus.ErrorLevel, "error occured while notifying: "+err.Error())
			if first == nil {
				first = err
			}
		}
	}
	return first
}

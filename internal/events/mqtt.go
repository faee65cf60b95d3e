// Package events publishes prayer completions to an MQTT broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

const (
	qos             = 1
	disconnectQuiet = 250
)

// CompletionTopic is where a user's completion events are published.
func CompletionTopic(userID string) string {
	return fmt.Sprintf("salah/users/%s/completions", userID)
}

// CompletionEvent is the JSON payload published for every new record.
type CompletionEvent struct {
	RecordID    string                 `json:"record_id"`
	InstanceID  string                 `json:"prayer_instance_id"`
	UserID      string                 `json:"user_id"`
	PrayerType  model.PrayerType       `json:"prayer_type"`
	CivilDate   model.CivilDate        `json:"civil_date"`
	Status      model.CompletionStatus `json:"status"`
	MarkedAt    time.Time              `json:"marked_at"`
	WindowStart time.Time              `json:"window_start"`
	WindowEnd   time.Time              `json:"window_end"`
}

// publisher is the part of mqtt.Client the publisher uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTTPublisher struct {
	client publisher
}

var _ prayer.Notifier = (*MQTTPublisher)(nil)

// Connect dials the broker and returns a publisher on that connection.
func Connect(brokerURL, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", brokerURL).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return NewMQTTPublisher(client), nil
}

func NewMQTTPublisher(client mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// PublishCompletion sends the event with QoS 1 and waits for the broker's
// acknowledgement or for ctx to end.
func (p *MQTTPublisher) PublishCompletion(ctx context.Context, instance model.PrayerInstance, rec model.CompletionRecord) error {
	payload, err := json.Marshal(CompletionEvent{
		RecordID:    rec.ID,
		InstanceID:  instance.ID,
		UserID:      rec.UserID,
		PrayerType:  instance.PrayerType,
		CivilDate:   instance.CivilDate,
		Status:      rec.Status,
		MarkedAt:    rec.MarkedAt.UTC(),
		WindowStart: instance.WindowStart.UTC(),
		WindowEnd:   instance.WindowEnd.UTC(),
	})
	if err != nil {
		return err
	}

	topic := CompletionTopic(rec.UserID)
	token := p.client.Publish(topic, qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	log.Debug().Str("topic", topic).Str("record_id", rec.ID).Msg("completion published")
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(disconnectQuiet)
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishCompletion(ctx context.Context, instance model.PrayerInstance, rec model.CompletionRecord) error {
	return nil
}

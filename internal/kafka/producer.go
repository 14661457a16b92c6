package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	EventRepairCreated  = "repair.created"
	EventRepairUpdated  = "repair.updated"
	EventRepairDeleted  = "repair.deleted"
	EventRepairCleared  = "repair.cleared"
	EventRepairSnapshot = "repair.snapshot"
)

// RepairEventProducer — интерфейс для отправки событий квитанций (для подмены в тестах).
type RepairEventProducer interface {
	ProduceRepairEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Producer пишет события квитанций в топик Kafka (best-effort, не блокирует API).
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    zerolog.Logger
}

// NewProducer создаёт продюсер. Если brokers пустой или topic пустой — методы no-op.
func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return &Producer{
		topic: topic,
		log:   log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled reports whether events actually leave the process.
func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// ProduceRepairEvent отправляет событие в топик; ключ сообщения — id квитанции, если он есть.
func (p *Producer) ProduceRepairEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.Error().Err(err).Str("event", event).Msg("kafka: marshal repair event")
		return
	}
	km := kafka.Message{Value: body}
	if id, ok := payload["repair_id"].(uint64); ok {
		km.Key = []byte(strconv.FormatUint(id, 10))
	}
	if err := p.writer.WriteMessages(ctx, km); err != nil {
		p.log.Warn().Err(err).Str("event", event).Msg("kafka: write repair event")
	}
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// RepairEventPayload flattens a ticket into the event body: the id plus every
// stored column, so a snapshot event is enough to rebuild the ticket.
func RepairEventPayload(r *model.Repair) map[string]interface{} {
	if r == nil {
		return nil
	}
	return map[string]interface{}{
		"repair_id":         r.ID,
		"client_name":       r.ClientName,
		"device_type":       r.DeviceType,
		"manufacturer":      r.Manufacturer,
		"model":             r.Model,
		"serial_number":     r.SerialNumber,
		"accessories":       r.Accessories,
		"client_address":    r.ClientAddress,
		"status":            string(r.Status),
		"status_timestamp":  r.StatusTimestamp,
		"issue_description": r.IssueDescription,
		"notes":             r.Notes,
	}
}

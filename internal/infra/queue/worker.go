package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-engagement/internal/entity"
	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

// IncomingEvent: payload publicado pelo orquestrador externo na fila de
// ingestão.
type IncomingEvent struct {
	LeadID    string                     `json:"lead_id"`
	EventType string                     `json:"event_type"`
	Channel   string                     `json:"channel"`
	Timestamp string                     `json:"timestamp,omitempty"`
	Metadata  map[string]json.RawMessage `json:"metadata,omitempty"`
}

// IngestionWorker consome eventos de engajamento da fila e alimenta o core.
type IngestionWorker struct {
	Channel *amqp.Channel
	Service *usecase.EngagementService
}

func NewIngestionWorker(ch *amqp.Channel, service *usecase.EngagementService) *IngestionWorker {
	return &IngestionWorker{
		Channel: ch,
		Service: service,
	}
}

func (w *IngestionWorker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual é mais seguro)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		log.Fatalf("❌ Falha ao registrar consumidor RabbitMQ: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload IncomingEvent
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] JSON Inválido: %s", err)
				// Mensagem podre (malformada). Rejeita sem requeue para não travar a fila.
				d.Nack(false, false)
				continue
			}

			log.Printf("📥 [WORKER] Evento %s/%s para lead %s", payload.EventType, payload.Channel, payload.LeadID)

			if err := w.processMessage(context.Background(), payload); err != nil {
				log.Printf("❌ [WORKER] Erro ao processar evento: %s", err)

				// Erro de domínio (lead inexistente, payload inválido) não
				// melhora com retry: vai para a DLQ
				if usecase.IsDomainError(err) || errors.Is(err, entity.ErrLeadNotFound) {
					d.Nack(false, false)
					continue
				}
				// Erro técnico (banco fora): devolve pra fila e tenta de novo
				d.Nack(false, true)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Worker de ingestão aguardando na fila '%s'", queueName)
	<-forever
}

func (w *IngestionWorker) processMessage(ctx context.Context, payload IncomingEvent) error {
	input := usecase.RecordEventInput{
		EventType: payload.EventType,
		Channel:   payload.Channel,
		Timestamp: payload.Timestamp,
	}

	if len(payload.Metadata) > 0 {
		raw, err := json.Marshal(payload.Metadata)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &input.Metadata); err != nil {
			return err
		}
	}

	_, err := w.Service.RecordEngagementEvent(ctx, payload.LeadID, input)
	return err
}

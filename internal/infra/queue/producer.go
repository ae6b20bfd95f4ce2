package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

// StageChangeProducer publica notificações de mudança de estágio para a
// camada de entrega (email/WhatsApp/CRM). Implementa
// usecase.StageNotifierInterface.
type StageChangeProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *StageChangeProducer {
	return &StageChangeProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *StageChangeProducer) PublishStageChange(ctx context.Context, notification usecase.StageChangeNotification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %v", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		NotificationsExchange,
		NotificationsRoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Mensagem salva no disco (segurança!)
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %v", err)
	}

	return nil
}

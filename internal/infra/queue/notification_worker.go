package queue

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

// StageChangeHandler: destino de uma notificação de mudança de estágio
// (email, WhatsApp, anotação no CRM). Falha individual não derruba os outros.
type StageChangeHandler interface {
	HandleStageChange(notification usecase.StageChangeNotification) error
}

// NotificationWorker consome a fila de mudanças de estágio e repassa para os
// handlers registrados. 100% desacoplado do banco.
type NotificationWorker struct {
	Channel  *amqp.Channel
	Handlers []StageChangeHandler
}

func NewNotificationWorker(ch *amqp.Channel, handlers ...StageChangeHandler) *NotificationWorker {
	return &NotificationWorker{
		Channel:  ch,
		Handlers: handlers,
	}
}

func (w *NotificationWorker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ Falha ao registrar consumidor de notificações: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var notification usecase.StageChangeNotification
			if err := json.Unmarshal(d.Body, &notification); err != nil {
				log.Printf("❌ [NOTIFY] JSON Inválido: %s", err)
				d.Nack(false, false)
				continue
			}

			log.Printf("📣 [NOTIFY] Lead %s: %s -> %s (%s)",
				notification.LeadID, notification.FromStage, notification.ToStage, notification.Reason)

			for _, handler := range w.Handlers {
				if err := handler.HandleStageChange(notification); err != nil {
					// Entrega é best-effort: loga e segue para o próximo handler
					log.Printf("⚠️ [NOTIFY] Handler falhou para lead %s: %v", notification.LeadID, err)
				}
			}

			d.Ack(false)
		}
	}()

	log.Printf(" [*] Worker de notificações aguardando na fila '%s'", queueName)
	<-forever
}

package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// Ingestão: eventos de engajamento vindos do orquestrador externo
	EventsExchange   = "ex.engagement"
	EventsQueue      = "q.engagement.events"
	EventsRoutingKey = "k.engagement.event"

	// Saída: notificações de mudança de estágio para a camada de entrega
	NotificationsExchange   = "ex.stage"
	NotificationsQueue      = "q.stage.changes"
	NotificationsRoutingKey = "k.stage.change"

	DLQName = "q.engagement.dlq"
	DLXName = "ex.engagement.dlx" // Dead Letter Exchange
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(user, pass, host, port string) (*RabbitMQ, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	err = setupTopology(ch)
	if err != nil {
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func setupTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil)
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(DLQName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	err = ch.QueueBind(DLQName, EventsRoutingKey, DLXName, false, nil)
	if err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName, // Se der Nack, manda pra DLX
		"x-dead-letter-routing-key": EventsRoutingKey,
	}

	err = ch.ExchangeDeclare(EventsExchange, "direct", true, false, false, false, nil)
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(EventsQueue, true, false, false, false, args)
	if err != nil {
		return err
	}

	err = ch.QueueBind(EventsQueue, EventsRoutingKey, EventsExchange, false, nil)
	if err != nil {
		return err
	}

	err = ch.ExchangeDeclare(NotificationsExchange, "direct", true, false, false, false, nil)
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	err = ch.QueueBind(NotificationsQueue, NotificationsRoutingKey, NotificationsExchange, false, nil)
	if err != nil {
		return err
	}

	return nil
}

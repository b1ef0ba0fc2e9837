package mailqueue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

const QueueName = "email_queue"

// Queue 是邮件入队的抽象，handler 只依赖这个接口，
// 测试中注入捕获实现即可观察到要发出的邮件
type Queue interface {
	Enqueue(ctx context.Context, msg domain.MailMessage) error
}

// AMQPQueue 把邮件序列化后发布到 rabbitmq，由 cmd/mail 消费
type AMQPQueue struct {
	cfg     *config.Config
	channel *amqp.Channel
}

func NewAMQPQueue(cfg *config.Config, channel *amqp.Channel) (*AMQPQueue, error) {
	// 声明持久化队列，worker 不在线时消息不丢
	if _, err := channel.QueueDeclare(
		QueueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	return &AMQPQueue{
		cfg:     cfg,
		channel: channel,
	}, nil
}

func (q *AMQPQueue) Enqueue(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(q.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return q.channel.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

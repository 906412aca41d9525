package eventpub

import (
	"annopedia-backend/utils"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"sync"

	"github.com/streadway/amqp"
)

var (
	ErrClosed        = errors.New("publisher has been closed")
	ErrQueueNotFound = errors.New("queue not declared on publisher")
)

type MQConnectionConfig struct {
	User string
	Pwd  string
	Host string
	Port string
}

// ToURL 用户名与密码按 URL 规则转义
func (c *MQConnectionConfig) ToURL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Pwd),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/",
	}
	return u.String()
}

func GenerateTestMQConnectionConfig() MQConnectionConfig {
	return MQConnectionConfig{
		User: "guest",
		Pwd:  "guest",
		Host: "localhost",
		Port: "5672",
	}
}

/*
rabbitMQPublisher 持有一条连接和一个复用的 channel。

channel 出错后会被 broker 关闭，下一次发送时重新打开；连接本身断开时只能重新 Init。
*/
type rabbitMQPublisher struct {
	lock   sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	queues map[string]struct{}
	closed bool
}

func newRabbitMQPublisher(url string, queueList []string) (*rabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, utils.WrapError(err, "create connection fail")
	}

	mq := &rabbitMQPublisher{
		conn:   conn,
		queues: make(map[string]struct{}, len(queueList)),
	}
	ch, err := mq.channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	for _, queueName := range queueList {
		// durable，不自动删除，非独占
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, utils.WrapErrorf(err, "declare queue [%s] fail", queueName)
		}
		mq.queues[queueName] = struct{}{}
	}
	return mq, nil
}

// channel 调用方需持有 lock，构造时除外
func (mq *rabbitMQPublisher) channel() (*amqp.Channel, error) {
	if mq.ch != nil {
		return mq.ch, nil
	}
	ch, err := mq.conn.Channel()
	if err != nil {
		return nil, utils.WrapError(err, "create channel fail")
	}
	mq.ch = ch
	return ch, nil
}

func (mq *rabbitMQPublisher) SendObjectByJSON(queueName string, obj any) error {
	if _, ok := mq.queues[queueName]; !ok {
		return ErrQueueNotFound
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return utils.WrapError(err, "json marshal fail")
	}

	mq.lock.Lock()
	defer mq.lock.Unlock()
	if mq.closed {
		return ErrClosed
	}

	ch, err := mq.channel()
	if err != nil {
		return err
	}
	err = ch.Publish("", queueName, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		_ = ch.Close()
		mq.ch = nil
		return utils.WrapErrorf(err, "publish to [%s] fail", queueName)
	}
	return nil
}

func (mq *rabbitMQPublisher) Close() error {
	mq.lock.Lock()
	defer mq.lock.Unlock()

	if mq.closed {
		return ErrClosed
	}
	mq.closed = true
	if mq.ch != nil {
		_ = mq.ch.Close()
		mq.ch = nil
	}
	return mq.conn.Close()
}

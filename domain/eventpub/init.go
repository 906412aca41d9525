package eventpub

import (
	"annopedia-backend/logging"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultQueue = "annotation_events"

type Config struct {
	Enabled        bool
	RabbitMQConfig MQConnectionConfig
	Queue          string
	Logger         *logrus.Logger
}

// objectSender 由 rabbitMQPublisher 实现，测试中替换为内存实现。
type objectSender interface {
	SendObjectByJSON(queueName string, obj any) error
	Close() error
}

type publisher struct {
	sender objectSender
	queue  string
	logger *logrus.Logger
}

var (
	globalLock      sync.RWMutex
	globalPublisher *publisher
)

/*
Init 连接消息队列。Enabled 为 false 时 Publish 什么也不做；
连接失败时返回错误，调用方决定是否继续运行。
*/
func Init(config *Config) error {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	if !config.Enabled {
		setPublisher(nil)
		return nil
	}

	queue := config.Queue
	if len(queue) == 0 {
		queue = DefaultQueue
	}

	mq, err := newRabbitMQPublisher(config.RabbitMQConfig.ToURL(), []string{queue})
	if err != nil {
		return err
	}

	setPublisher(&publisher{sender: mq, queue: queue, logger: logger})
	return nil
}

func setPublisher(p *publisher) {
	globalLock.Lock()
	defer globalLock.Unlock()

	if globalPublisher != nil {
		if err := globalPublisher.sender.Close(); err != nil {
			globalPublisher.logger.WithError(err).Errorf("close publisher fail")
		}
	}
	globalPublisher = p
}

// Publish 同步发送事件，失败只记录日志。
func Publish(event *EntryEvent) {
	globalLock.RLock()
	defer globalLock.RUnlock()

	if globalPublisher == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	err := globalPublisher.sender.SendObjectByJSON(globalPublisher.queue, event)
	if err != nil {
		globalPublisher.logger.WithError(err).Errorf("publish event [%s] of entry [%d] fail", event.Event, event.EntryID)
	}
}

func Close() {
	setPublisher(nil)
}

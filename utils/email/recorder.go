package email

import "sync"

type Message struct {
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Recorder 只记录不发送的 Sender。
type Recorder struct {
	lock     sync.Mutex
	messages []Message
	// Err 非空时 Send 返回该错误且不记录
	Err error
}

func (r *Recorder) Send(to, subject, body string, html bool) error {
	if r.Err != nil {
		return r.Err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.messages = append(r.messages, Message{To: to, Subject: subject, Body: body, HTML: html})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Message(nil), r.messages...)
}

package remote

import (
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type mockClient struct {
	mu   sync.Mutex
	pubs []mockMsg
	subs []mockSub
}
type mockSub struct {
	filter  string
	handler mqtt.MessageHandler
}

var _ mqtt.Client = new(mockClient) // compile-time interface check

func (self *mockClient) Disconnect(uint)        {}
func (self *mockClient) IsConnected() bool      { return true }
func (self *mockClient) IsConnectionOpen() bool { return true }
func (self *mockClient) Connect() mqtt.Token    { return mockToken{} }

func (self *mockClient) Publish(topic string, qos byte, retain bool, payload interface{}) mqtt.Token {
	self.mu.Lock()
	defer self.mu.Unlock()
	msg := mockMsg{t: topic, retain: retain}
	switch p := payload.(type) {
	case string:
		msg.p = []byte(p)
	case []byte:
		msg.p = p
	}
	self.pubs = append(self.pubs, msg)
	return mockToken{}
}

func (self *mockClient) Subscribe(filter string, qos byte, handler mqtt.MessageHandler) mqtt.Token {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.subs = append(self.subs, mockSub{filter, handler})
	return mockToken{}
}

func (self *mockClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *mockClient) Unsubscribe(...string) mqtt.Token        { panic("not implemented") }
func (self *mockClient) AddRoute(string, mqtt.MessageHandler)    { panic("not implemented") }
func (self *mockClient) OptionsReader() mqtt.ClientOptionsReader { panic("not implemented") }

// deliver calls handler of first subscription matching topic, supports single level `+` wildcard.
func (self *mockClient) deliver(t testing.TB, topic string, payload string) {
	self.mu.Lock()
	subs := append([]mockSub(nil), self.subs...)
	self.mu.Unlock()
	for _, sub := range subs {
		if topicMatch(sub.filter, topic) {
			sub.handler(self, mockMsg{t: topic, p: []byte(payload)})
			return
		}
	}
	t.Errorf("not subscribed for topic=%s", topic)
}

func (self *mockClient) published() []mockMsg {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]mockMsg(nil), self.pubs...)
}

func topicMatch(filter, topic string) bool {
	for {
		fi, ti := indexSlash(filter), indexSlash(topic)
		f, tp := filter[:fi], topic[:ti]
		if f != "+" && f != tp {
			return false
		}
		if fi == len(filter) || ti == len(topic) {
			return fi == len(filter) && ti == len(topic)
		}
		filter, topic = filter[fi+1:], topic[ti+1:]
	}
}

func indexSlash(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return i
		}
	}
	return len(s)
}

type mockToken struct{ error }

func (tok mockToken) Error() error                   { return tok.error }
func (tok mockToken) Wait() bool                     { return true }
func (tok mockToken) WaitTimeout(time.Duration) bool { return true }

type mockMsg struct {
	t      string
	p      []byte
	retain bool
}

func (msg mockMsg) Ack()              {}
func (msg mockMsg) Duplicate() bool   { return false }
func (msg mockMsg) MessageID() uint16 { return 0 }
func (msg mockMsg) Payload() []byte   { return msg.p }
func (msg mockMsg) Qos() byte         { return 0 }
func (msg mockMsg) Retained() bool    { return msg.retain }
func (msg mockMsg) Topic() string     { return msg.t }

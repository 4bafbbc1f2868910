// Package remote drives text display from MQTT messages.
//
// Topics under configured prefix:
//   <prefix>/line/<row>  payload is UTF-8 text of display row, 0-based
//   <prefix>/backlight   payload on|off|1|0|true|false
//   <prefix>/clear       payload ignored
//   <prefix>/state       published by remote: current display text, retained
//   <prefix>/online      published by remote: 1 after connect, 0 as will
package remote

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/hd44780/hardware/text_display"
	"github.com/temoto/hd44780/helpers"
	"github.com/temoto/hd44780/log2"
)

const (
	DefaultTopicPrefix    = "hd44780"
	defaultNetworkTimeout = 30 * time.Second

	topicLine      = "line"
	topicBacklight = "backlight"
	topicClear     = "clear"
	topicState     = "state"
	topicOnline    = "online"
)

// Display is implemented by *text_display.TextDisplay
type Display interface {
	Clear() error
	Rows() int
	SetLine(row int, s string) error
	State() text_display.State
}

// Backlighter is implemented by *hd44780.LCD
type Backlighter interface {
	SetBacklight(on bool) error
}

type Remote struct {
	log     *log2.Log
	alive   *alive.Alive
	display Display
	light   Backlighter
	m       mqtt.Client
	mopt    *mqtt.ClientOptions
	retry   *helpers.Backoff

	prefix string
}

// New prepares client options. `light` may be nil.
// Call Run to connect.
func New(log *log2.Log, c Config, display Display, light Backlighter) (*Remote, error) {
	if display == nil {
		return nil, errors.NotValidf("remote display=nil")
	}
	if c.Broker == "" {
		return nil, errors.NotValidf("mqtt.broker=empty")
	}
	self := &Remote{
		log:     log,
		alive:   alive.NewAlive(),
		display: display,
		light:   light,
		prefix:  strings.TrimSuffix(c.TopicPrefix, "/"),
	}
	if self.prefix == "" {
		self.prefix = DefaultTopicPrefix
	}
	clientId := c.ClientID
	if clientId == "" {
		clientId = self.prefix
	}

	mqttLog := log.Clone(log2.LDebug)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if c.LogDebug {
		mqtt.DEBUG = mqttLog
	}

	networkTimeout := c.NetworkTimeout()
	connectTimeout := networkTimeout * 3
	keepaliveTimeout := c.Keepalive()

	self.mopt = mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetClientID(clientId).
		SetConnectTimeout(connectTimeout).
		SetDefaultPublishHandler(self.onMessage).
		SetKeepAlive(keepaliveTimeout).
		SetMaxReconnectInterval(connectTimeout).
		SetOnConnectHandler(func(mqtt.Client) { self.log.Infof("remote connected broker=%s", c.Broker) }).
		SetPingTimeout(networkTimeout).
		SetWill(self.topic(topicOnline), "0", 1, true).
		SetWriteTimeout(networkTimeout)
	if c.Username != "" {
		self.mopt.SetUsername(c.Username).SetPassword(c.Password)
	}
	if c.TlsCaFile != "" {
		tlsconf := new(tls.Config)
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(c.TlsCaFile)
		if err != nil {
			return nil, errors.Annotatef(err, "mqtt.tls_ca_file=%s", c.TlsCaFile)
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
		self.mopt.SetTLSConfig(tlsconf)
	}
	self.m = mqtt.NewClient(self.mopt)
	self.retry = &helpers.Backoff{Min: 1 * time.Second, Max: connectTimeout, K: 2}
	return self, nil
}

func (self *Remote) topic(suffix string) string { return self.prefix + "/" + suffix }

// Run connects and subscribes, retrying until success or Stop.
// Returns after subscription, paho client serves messages in background.
func (self *Remote) Run() error {
	for self.alive.IsRunning() {
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			self.retry.Success()
			break // success path
		}
		self.pause()
	}

	filters := []string{
		self.topic(topicLine + "/+"),
		self.topic(topicBacklight),
		self.topic(topicClear),
	}
	for _, f := range filters {
		for self.alive.IsRunning() {
			t := self.m.Subscribe(f, 1, self.onMessage)
			if self.tokenWait(t, "subscribe:"+f) == nil {
				break // success path
			}
			self.pause()
		}
	}
	if !self.alive.IsRunning() {
		return errors.New("remote stopped")
	}
	return self.tokenWait(self.m.Publish(self.topic(topicOnline), 1, true, "1"), "publish online")
}

func (self *Remote) pause() {
	select {
	case <-time.After(self.retry.Failure()):
	case <-self.alive.StopChan():
	}
}

func (self *Remote) Stop() {
	if !self.alive.IsRunning() {
		return
	}
	self.alive.Stop()
	if self.m.IsConnected() {
		_ = self.tokenWait(self.m.Publish(self.topic(topicOnline), 1, true, "0"), "publish offline")
		self.m.Disconnect(uint(self.mopt.PingTimeout / time.Millisecond))
	}
}

func (self *Remote) onMessage(_ mqtt.Client, msg mqtt.Message) {
	err := self.Handle(msg.Topic(), msg.Payload())
	msg.Ack()
	if err != nil {
		self.log.Errorf("remote topic=%s err=%v", msg.Topic(), err)
		return
	}
	state := self.display.State()
	t := self.m.Publish(self.topic(topicState), 0, true, state.String())
	_ = self.tokenWait(t, "publish state")
}

// Handle applies one message to display.
func (self *Remote) Handle(topic string, payload []byte) error {
	if !strings.HasPrefix(topic, self.prefix+"/") {
		return errors.NotFoundf("topic=%s", topic)
	}
	suffix := topic[len(self.prefix)+1:]
	self.log.Debugf("remote %s payload=%q", suffix, payload)

	switch {
	case strings.HasPrefix(suffix, topicLine+"/"):
		s := suffix[len(topicLine)+1:]
		row, err := strconv.Atoi(s)
		if err != nil || row < 0 || row >= self.display.Rows() {
			return errors.NotValidf("row=%s", s)
		}
		return self.display.SetLine(row, string(payload))

	case suffix == topicBacklight:
		on, err := ParseSwitch(string(payload))
		if err != nil {
			return err
		}
		if self.light == nil {
			return nil
		}
		return self.light.SetBacklight(on)

	case suffix == topicClear:
		return self.display.Clear()
	}
	return errors.NotFoundf("topic=%s", topic)
}

// ParseSwitch accepts on|off|1|0|true|false, case and space insensitive.
func ParseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true", "yes":
		return true, nil
	case "off", "0", "false", "no":
		return false, nil
	}
	return false, errors.NotValidf("switch value='%s' (expected on|off)", s)
}

func (self *Remote) tokenWait(t mqtt.Token, tag string) error {
	if !t.Wait() {
		err := errors.Errorf("%s timeout", tag)
		self.log.Errorf("remote: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("remote: MQTT %s", err.Error())
		return err
	}
	return nil
}

package pinio

import (
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// DefaultExpanderAddr is usual address of PCF8574 LCD backpack.
const DefaultExpanderAddr = 0x27

// Expander drives 8 quasi-bidirectional pins of PCF8574 I2C port expander.
// Pin numbers are expander bits 0-7. Every Set writes whole port.
type Expander struct {
	mu      sync.Mutex
	dev     *i2c.Dev
	closer  io.Closer
	outputs uint8
	port    uint8
	closed  bool
}

// OpenExpander opens I2C bus by periph name ("" for first bus, "1", "/dev/i2c-1").
func OpenExpander(bus string, addr uint16) (*Expander, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, errors.Annotatef(err, "i2c bus=%s", bus)
	}
	self := NewExpander(b, addr)
	self.closer = b
	return self, nil
}

func NewExpander(bus i2c.Bus, addr uint16) *Expander {
	return &Expander{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

func (self *Expander) Output(pin Pin) error {
	if pin < 0 || pin > 7 {
		return errors.NotValidf("expander pin=%s (expected 0-7)", pin)
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return errors.Errorf("expander closed")
	}
	self.outputs |= 1 << uint(pin)
	return self.write(self.port &^ (1 << uint(pin)))
}

func (self *Expander) Set(pin Pin, level Level) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if pin < 0 || pin > 7 || self.outputs&(1<<uint(pin)) == 0 {
		return errors.NotFoundf("expander output pin=%s", pin)
	}
	port := self.port &^ (1 << uint(pin))
	if level == High {
		port |= 1 << uint(pin)
	}
	if port == self.port {
		return nil
	}
	return self.write(port)
}

func (self *Expander) write(port uint8) error {
	if err := self.dev.Tx([]byte{port}, nil); err != nil {
		return errors.Annotatef(err, "i2c addr=%#02x write=%#02x", self.dev.Addr, port)
	}
	self.port = port
	return nil
}

func (self *Expander) Port() uint8 {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.port
}

func (self *Expander) Sleep(d time.Duration) { Sleep(d) }

func (self *Expander) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return nil
	}
	self.closed = true
	self.outputs = 0
	if self.closer != nil {
		return errors.Annotate(self.closer.Close(), "i2c close")
	}
	return nil
}

// compile-time interface check
var _ Driver = &Expander{}

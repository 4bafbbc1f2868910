package hd44780

import (
	"strconv"

	"github.com/juju/errors"
	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/helpers"
)

// PinMap is wiring as written in config file, empty string means not connected.
type PinMap struct {
	RS        string   `hcl:"rs"`
	E         string   `hcl:"e"`
	D         []string `hcl:"d"`
	Backlight string   `hcl:"backlight"`
	Reset     string   `hcl:"reset"`
}

// Apply parses pin numbers into `c`. Every malformed pin is reported.
func (self *PinMap) Apply(c *Config) error {
	errs := make([]error, 0, 4)
	parse := func(name, s string, optional bool) pinio.Pin {
		if s == "" && optional {
			return pinio.NoPin
		}
		x, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			errs = append(errs, errors.NotValidf("pinmap %s='%s'", name, s))
			return pinio.NoPin
		}
		return pinio.Pin(x)
	}
	c.RS = parse("rs", self.RS, false)
	c.E = parse("e", self.E, false)
	c.Data = make([]pinio.Pin, len(self.D))
	for i, s := range self.D {
		c.Data[i] = parse("d["+strconv.Itoa(i)+"]", s, false)
	}
	c.Backlight = parse("backlight", self.Backlight, true)
	c.Reset = parse("reset", self.Reset, true)
	return helpers.FoldErrors(errs)
}

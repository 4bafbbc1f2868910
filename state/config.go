package state

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/hd44780/hardware/hd44780"
	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/hardware/text_display"
	"github.com/temoto/hd44780/helpers"
	"github.com/temoto/hd44780/internal/remote"
	"github.com/temoto/hd44780/log2"
)

const (
	DriverCdev     = "cdev"
	DriverPeriph   = "periph"
	DriverExpander = "pcf8574"
	DriverMock     = "mock"

	DefaultPinChip = "/dev/gpiochip0"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	LogLevel string `hcl:"log_level"`
	Hardware struct {
		HD44780 HD44780Config `hcl:"hd44780"`
	} `hcl:"hardware"`
	Mqtt    remote.Config `hcl:"mqtt"`
	Persist struct {
		// empty disables persistence
		Root string `hcl:"root"`
	} `hcl:"persist"`

	_copy_guard sync.Mutex //nolint:unused
}

type HD44780Config struct { //nolint:maligned
	Driver        string         `hcl:"driver"`
	PinChip       string         `hcl:"pin_chip"`
	I2CBus        string         `hcl:"i2c_bus"`
	I2CAddr       int            `hcl:"i2c_addr"`
	Pinmap        hd44780.PinMap `hcl:"pinmap"`
	Bus           int            `hcl:"bus"`
	Cols          int            `hcl:"cols"`
	Rows          int            `hcl:"rows"`
	Dots          string         `hcl:"dots"`
	ControlBlink  bool           `hcl:"blink"`
	ControlCursor bool           `hcl:"cursor"`
	Backlight     bool           `hcl:"backlight"`
	Codepage      string         `hcl:"codepage"`
	ScrollDelay   int            `hcl:"scroll_delay"` // milliseconds
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *HD44780Config) DriverName() string {
	if c.Driver == "" {
		return DriverCdev
	}
	return strings.ToLower(c.Driver)
}

// DefaultLCDConfig is wiring used when pinmap is not set.
// PCF8574 backpack: P0=RS P1=RW P2=E P3=backlight P4-P7=D4-D7.
func (c *HD44780Config) DefaultLCDConfig() hd44780.Config {
	lc := hd44780.DefaultConfig()
	if c.DriverName() == DriverExpander {
		lc.RS, lc.E, lc.Backlight = 0, 2, 3
		lc.Data = []pinio.Pin{4, 5, 6, 7}
	}
	return lc
}

// LCDConfig merges config file values over DefaultLCDConfig.
// Missing pinmap entries keep default wiring.
func (c *HD44780Config) LCDConfig() (hd44780.Config, error) {
	lc := c.DefaultLCDConfig()
	errs := make([]error, 0, 4)

	pm := c.Pinmap
	if pm.RS == "" {
		pm.RS = lc.RS.String()
	}
	if pm.E == "" {
		pm.E = lc.E.String()
	}
	if len(pm.D) == 0 {
		for _, p := range lc.Data {
			pm.D = append(pm.D, p.String())
		}
	}
	if pm.Backlight == "" && lc.Backlight.Valid() {
		pm.Backlight = lc.Backlight.String()
	}
	if pm.Reset == "" && lc.Reset.Valid() {
		pm.Reset = lc.Reset.String()
	}
	if err := pm.Apply(&lc); err != nil {
		errs = append(errs, err)
	}

	switch c.Bus {
	case 0:
	case 4:
		lc.Bus = hd44780.Bus4
	case 8:
		lc.Bus = hd44780.Bus8
	default:
		errs = append(errs, errors.NotValidf("config: hardware.hd44780.bus=%d (valid: 4, 8)", c.Bus))
	}
	if c.Cols != 0 {
		lc.Cols = c.Cols
	}
	if c.Rows != 0 {
		lc.Rows = c.Rows
	}
	dots, err := hd44780.ParseDotSize(c.Dots)
	if err != nil {
		errs = append(errs, err)
	}
	lc.Dots = dots

	if err := helpers.FoldErrors(errs); err != nil {
		return lc, err
	}
	return lc, lc.Validate()
}

func (c *HD44780Config) TextDisplayConfig() *text_display.TextDisplayConfig {
	lc, _ := c.LCDConfig()
	return &text_display.TextDisplayConfig{
		Codepage:    c.Codepage,
		ScrollDelay: time.Duration(c.ScrollDelay) * time.Millisecond,
		Width:       uint32(lc.Cols),
		Rows:        lc.Rows,
	}
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

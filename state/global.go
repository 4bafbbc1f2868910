package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/hd44780/hardware/hd44780"
	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/hardware/text_display"
	"github.com/temoto/hd44780/helpers"
	"github.com/temoto/hd44780/log2"
)

type Global struct {
	Alive    *alive.Alive
	Config   *Config
	Hardware struct {
		HD44780 struct {
			Driver  pinio.Driver
			Device  *hd44780.LCD
			Display *text_display.TextDisplay
		}
	}
	Log *log2.Log

	initDisplayOnce sync.Once
	initDisplayErr  error
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, ContextKey, g)

	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

func (g *Global) Init(cfg *Config) error {
	g.Config = cfg

	level, err := log2.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Annotate(err, "config: log_level")
	}
	g.Log.SetLevel(level)

	errs := make([]error, 0, 2)
	if _, err := cfg.Hardware.HD44780.LCDConfig(); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Hardware.HD44780.DriverName() {
	case DriverCdev, DriverPeriph, DriverMock:
	case DriverExpander:
		if a := cfg.Hardware.HD44780.I2CAddr; a < 0 || a > 0x7f {
			errs = append(errs, errors.NotValidf("config: hardware.hd44780.i2c_addr=%#x", a))
		}
	default:
		errs = append(errs, errors.NotValidf("config: hardware.hd44780.driver=%s (valid: cdev, periph, pcf8574, mock)", cfg.Hardware.HD44780.Driver))
	}
	if cfg.Mqtt.Enabled && cfg.Mqtt.Broker == "" {
		errs = append(errs, errors.NotValidf("config: mqtt.broker=empty"))
	}
	return helpers.FoldErrors(errs)
}

func (g *Global) MustInit(cfg *Config) {
	if err := g.Init(cfg); err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

// Driver opens GPIO access selected by hardware.hd44780.driver.
// Driver set before first call (tests) is kept.
func (g *Global) Driver() (pinio.Driver, error) {
	if g.Hardware.HD44780.Driver != nil {
		return g.Hardware.HD44780.Driver, nil
	}
	cfg := &g.Config.Hardware.HD44780
	var drv pinio.Driver
	var err error
	switch cfg.DriverName() {
	case DriverCdev:
		chip := cfg.PinChip
		if chip == "" {
			chip = DefaultPinChip
		}
		drv, err = pinio.OpenCdev(chip, pinio.DefaultConsumer)
		err = errors.Annotatef(err, "config: hardware.hd44780.pin_chip=%s", chip)
	case DriverPeriph:
		drv, err = pinio.OpenPeriph()
	case DriverExpander:
		addr := uint16(cfg.I2CAddr)
		if addr == 0 {
			addr = pinio.DefaultExpanderAddr
		}
		drv, err = pinio.OpenExpander(cfg.I2CBus, addr)
		err = errors.Annotatef(err, "config: hardware.hd44780.i2c_bus=%s i2c_addr=%#x", cfg.I2CBus, addr)
	case DriverMock:
		drv = pinio.NewMock()
	default:
		err = errors.NotValidf("config: hardware.hd44780.driver=%s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	g.Hardware.HD44780.Driver = drv
	return drv, nil
}

// LCD opens and initializes controller once.
func (g *Global) LCD() (*hd44780.LCD, error) {
	g.initDisplayOnce.Do(func() {
		defer recoverFatal(g.Log) // fix sync.Once silent panic
		g.initDisplayErr = g.initDisplay()
	})
	return g.Hardware.HD44780.Device, g.initDisplayErr
}

func (g *Global) Display() (*text_display.TextDisplay, error) {
	if _, err := g.LCD(); err != nil {
		return nil, err
	}
	return g.Hardware.HD44780.Display, nil
}

func (g *Global) initDisplay() error {
	cfg := &g.Config.Hardware.HD44780
	lc, err := cfg.LCDConfig()
	if err != nil {
		return err
	}
	drv, err := g.Driver()
	if err != nil {
		return errors.Annotate(err, "hd44780 driver")
	}
	dev, err := hd44780.New(drv, lc)
	if err != nil {
		return err
	}
	dev.Log = g.Log
	if err = dev.SetBlink(cfg.ControlBlink); err != nil {
		return err
	}
	if err = dev.SetCursor(cfg.ControlCursor); err != nil {
		return err
	}
	if err = dev.Begin(); err != nil {
		return errors.Annotate(err, "hd44780 begin")
	}
	if err = dev.SetBacklight(cfg.Backlight); err != nil {
		return err
	}

	d, err := text_display.NewTextDisplay(cfg.TextDisplayConfig())
	if err != nil {
		return errors.Annotate(err, "text display")
	}
	d.Log = g.Log
	d.SetDevice(dev)

	g.Hardware.HD44780.Device = dev
	g.Hardware.HD44780.Display = d
	return nil
}

// Close stops display scroll and releases hardware. Display is cleared if `clear`.
func (g *Global) Close(clear bool) error {
	g.Alive.Stop()
	hw := &g.Hardware.HD44780
	if hw.Display != nil {
		hw.Display.Stop()
	}
	if hw.Device != nil {
		return hw.Device.Close(clear)
	}
	if hw.Driver != nil {
		return hw.Driver.Close()
	}
	return nil
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Errorf(errors.ErrorStack(err))
	}
}

func recoverFatal(f helpers.Fataler) {
	if x := recover(); x != nil {
		f.Fatal(x)
	}
}

package state

import (
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/hd44780/hardware/hd44780"
	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Global)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, g *Global) {
			lc, err := g.Config.Hardware.HD44780.LCDConfig()
			require.NoError(t, err)
			assert.Equal(t, hd44780.DefaultConfig(), lc)
			assert.Equal(t, DriverCdev, g.Config.Hardware.HD44780.DriverName())
			assert.False(t, g.Config.Mqtt.Enabled)
		}, ""},

		{"hd44780", `
hardware { hd44780 {
	driver = "Mock"
	pinmap {
		rs = "7"
		e = "8"
		d = ["1", "2", "3", "4", "5", "6", "10", "11"]
		backlight = "9"
	}
	bus = 4
	cols = 20
	rows = 4
	dots = "5x10"
	blink = true
	codepage = "windows-1251"
	scroll_delay = 150
} }`,
			func(t testing.TB, g *Global) {
				hc := &g.Config.Hardware.HD44780
				assert.Equal(t, DriverMock, hc.DriverName())
				assert.True(t, hc.ControlBlink)
				assert.False(t, hc.ControlCursor)
				lc, err := hc.LCDConfig()
				require.NoError(t, err)
				assert.Equal(t, pinio.Pin(7), lc.RS)
				assert.Equal(t, pinio.Pin(8), lc.E)
				assert.Equal(t, []pinio.Pin{1, 2, 3, 4, 5, 6, 10, 11}, lc.Data)
				assert.Equal(t, pinio.Pin(9), lc.Backlight)
				assert.Equal(t, pinio.NoPin, lc.Reset)
				assert.Equal(t, hd44780.Bus4, lc.BusWidth())
				assert.Equal(t, 20, lc.Cols)
				assert.Equal(t, 4, lc.Rows)
				assert.Equal(t, hd44780.Dots5x10, lc.Dots)

				tdc := hc.TextDisplayConfig()
				assert.Equal(t, uint32(20), tdc.Width)
				assert.Equal(t, 4, tdc.Rows)
				assert.Equal(t, "windows-1251", tdc.Codepage)
				assert.Equal(t, 150*time.Millisecond, tdc.ScrollDelay)
			}, ""},

		{"pcf8574", `hardware { hd44780 { driver = "pcf8574" i2c_bus = "1" i2c_addr = 0x3f cols = 20 rows = 4 } }`,
			func(t testing.TB, g *Global) {
				hc := &g.Config.Hardware.HD44780
				assert.Equal(t, DriverExpander, hc.DriverName())
				assert.Equal(t, "1", hc.I2CBus)
				assert.Equal(t, 0x3f, hc.I2CAddr)
				lc, err := hc.LCDConfig()
				require.NoError(t, err)
				assert.Equal(t, pinio.Pin(0), lc.RS)
				assert.Equal(t, pinio.Pin(2), lc.E)
				assert.Equal(t, []pinio.Pin{4, 5, 6, 7}, lc.Data)
				assert.Equal(t, pinio.Pin(3), lc.Backlight)
				assert.Equal(t, pinio.NoPin, lc.Reset)
			}, ""},

		{"persist", `persist { root = "/var/lib/hd44780" }`,
			func(t testing.TB, g *Global) {
				assert.Equal(t, "/var/lib/hd44780", g.Config.Persist.Root)
			}, ""},

		{"pinmap-partial", `hardware { hd44780 { pinmap { reset = "5" } } }`,
			func(t testing.TB, g *Global) {
				lc, err := g.Config.Hardware.HD44780.LCDConfig()
				require.NoError(t, err)
				def := hd44780.DefaultConfig()
				assert.Equal(t, def.RS, lc.RS)
				assert.Equal(t, def.Data, lc.Data)
				assert.Equal(t, pinio.Pin(5), lc.Reset)
			}, ""},

		{"mqtt", `
mqtt {
	enable = true
	broker = "tcp://broker:1883"
	topic_prefix = "lobby/lcd"
	network_timeout_sec = 3
}`,
			func(t testing.TB, g *Global) {
				assert.True(t, g.Config.Mqtt.Enabled)
				assert.Equal(t, "tcp://broker:1883", g.Config.Mqtt.Broker)
				assert.Equal(t, "lobby/lcd", g.Config.Mqtt.TopicPrefix)
				assert.Equal(t, 3, g.Config.Mqtt.NetworkTimeoutSec)
			}, ""},

		{"include-normalize", `
log_level = "error"
include "./empty" {}`,
			nil, ""},

		{"include-optional", `
include "log-debug" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, g *Global) {
				assert.Equal(t, "debug", g.Config.LogLevel)
			}, ""},

		{"include-overwrites", `
log_level = "error"
include "log-debug" {}`,
			func(t testing.TB, g *Global) {
				assert.Equal(t, "debug", g.Config.LogLevel)
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-include-required", `include "non-exist" {}`, nil, "config required name=non-exist"},
		{"error-log-level", `log_level = "verbose"`, nil, "log_level"},
		{"error-driver", `hardware { hd44780 { driver = "spi" } }`, nil, "driver=spi"},
		{"error-cols", `hardware { hd44780 { cols = 41 } }`, nil, "cols=41"},
		{"error-bus", `hardware { hd44780 { bus = 6 } }`, nil, "bus=6"},
		{"error-dots", `hardware { hd44780 { dots = "6x9" } }`, nil, "dot size=6x9"},
		{"error-pinmap", `hardware { hd44780 { pinmap { e = "E1" } } }`, nil, "pinmap e='E1' not valid"},
		{"error-i2c-addr", `hardware { hd44780 { driver = "pcf8574" i2c_addr = 200 } }`, nil, "i2c_addr=0xc8"},
		{"error-mqtt-broker", `mqtt { enable = true }`, nil, "mqtt.broker=empty"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			t.Parallel()
			// log := log2.NewStderr(log2.LDebug) // helps with panics
			log := log2.NewTest(t, log2.LDebug)
			_, g := NewContext(log)

			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"log-debug":    `log_level = "debug"`,
				"error-syntax": "hello",
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if err == nil {
				err = g.Init(cfg)
			}
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, g)
				}
			} else {
				if err == nil {
					t.Fatalf("error expected='%s' actual=nil", c.expectErr)
				}
				if !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, mkCheck(c))
	}
}

func TestFunctionalBundled(t *testing.T) {
	// not Parallel
	t.Logf("this test needs OS open|read|stat access to file `../hd44780.hcl`")

	log := log2.NewTest(t, log2.LDebug)
	c := MustReadConfig(log, NewOsFullReader("."), "../hd44780.hcl")
	_, err := c.Hardware.HD44780.LCDConfig()
	require.NoError(t, err)
}

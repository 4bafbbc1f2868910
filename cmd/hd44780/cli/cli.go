// Interactive or batch control of display, one command line at a time.
package cli

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/hd44780/cmd/hd44780/subcmd"
	"github.com/temoto/hd44780/engine"
	"github.com/temoto/hd44780/hardware/hd44780"
	helpers_cli "github.com/temoto/hd44780/helpers/cli"
	"github.com/temoto/hd44780/internal/remote"
	"github.com/temoto/hd44780/log2"
	"github.com/temoto/hd44780/state"
)

const usage = `syntax: commands separated by ;
(display)
- init              run initialization sequence
- clear             clear display, cursor to 0,0
- home              cursor to 0,0
- move C R          cursor to column C row R
- line R TEXT       replace row R with TEXT (codepage, padding, scroll)
- write TEXT        write TEXT at cursor
- shift N [cursor]  shift display (or only cursor) N positions, negative is right
- blink on|off
- cursor on|off
- display on|off
- backlight on|off
- char A XX...      define glyph A (0-7) from hex rows, top first
- reset [US]        pulse reset pin low US microseconds (default 50), then run init
- sN                pause N milliseconds

(meta)
- help
- log=debug         enable debug logging
- log=info          disable debug logging
- loop=N            repeat N times all commands on this line (must be first)
`

const defaultResetMicros = 50

var Mod = subcmd.Mod{Name: "cli", Usage: "interactive display control", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(config)

	if _, err := g.LCD(); err != nil {
		return errors.Annotate(err, "hd44780 init")
	}

	e := NewEngine(g.Log)
	helpers_cli.MainLoop("hd44780", newExecutor(ctx, e), newCompleter(), func() {
		if err := g.Close(false); err != nil {
			g.Log.Error(err)
		}
	})
	return g.Close(false)
}

// NewEngine registers commands without arguments.
func NewEngine(log *log2.Log) *engine.Engine {
	e := engine.NewEngine()
	e.Register("help", engine.Func0{Name: "help", F: func() error {
		log.Info(usage)
		return nil
	}})
	e.Register("log=debug", engine.Func0{Name: "log=debug", F: func() error {
		log.SetLevel(log2.LDebug)
		return nil
	}})
	e.Register("log=info", engine.Func0{Name: "log=info", F: func() error {
		log.SetLevel(log2.LInfo)
		return nil
	}})
	e.Register("init", withLCD("init", func(_ context.Context, lcd *hd44780.LCD) error { return lcd.Begin() }))
	e.Register("clear", withLCD("clear", func(ctx context.Context, lcd *hd44780.LCD) error {
		d, err := state.GetGlobal(ctx).Display()
		if err != nil {
			return err
		}
		return d.Clear()
	}))
	e.Register("home", withLCD("home", func(_ context.Context, lcd *hd44780.LCD) error { return lcd.Home() }))
	return e
}

func withLCD(name string, f func(context.Context, *hd44780.LCD) error) engine.Doer {
	return engine.Func{Name: name, F: func(ctx context.Context) error {
		lcd, err := state.GetGlobal(ctx).LCD()
		if err != nil {
			return err
		}
		return f(ctx, lcd)
	}}
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "help", Description: "show commands"},
		{Text: "init", Description: "run initialization sequence"},
		{Text: "clear", Description: "clear display"},
		{Text: "home", Description: "cursor to 0,0"},
		{Text: "move", Description: "move C R: cursor to column, row"},
		{Text: "line", Description: "line R TEXT: replace row"},
		{Text: "write", Description: "write TEXT at cursor"},
		{Text: "shift", Description: "shift N [cursor]"},
		{Text: "blink", Description: "blink on|off"},
		{Text: "cursor", Description: "cursor on|off"},
		{Text: "display", Description: "display on|off"},
		{Text: "backlight", Description: "backlight on|off"},
		{Text: "char", Description: "char A XX...: define glyph"},
		{Text: "reset", Description: "reset [US]: pulse reset pin"},
		{Text: "sN", Description: "pause for N ms"},
		{Text: "loop=N", Description: "repeat line N times"},
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context, e *engine.Engine) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		d, err := parseLine(e, line)
		if err != nil {
			g.Log.Errorf(errors.ErrorStack(err))
			return
		}
		if err = d.Do(ctx); err != nil {
			g.Log.Errorf(errors.ErrorStack(err))
		}
	}
}

func parseLine(e *engine.Engine, line string) (engine.Doer, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return engine.Nothing{}, nil
	}

	loopn := uint(0)
	if strings.HasPrefix(line, "loop=") {
		word, rest := splitWord(line)
		i, err := strconv.ParseUint(word[5:], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		loopn = uint(i)
		line = rest
	}

	tx := engine.NewSeq("input:" + line)
	for _, part := range strings.Split(line, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := parseCommand(e, part)
		if err != nil {
			return nil, err
		}
		tx.Append(d)
	}

	if loopn != 0 {
		return engine.RepeatN{N: loopn, D: tx}, nil
	}
	return tx, nil
}

func parseCommand(e *engine.Engine, s string) (engine.Doer, error) {
	name, rest := splitWord(s)
	args := strings.Fields(rest)
	if d := e.Resolve(name); d != nil {
		if len(args) != 0 {
			return nil, errors.NotValidf("command=%s takes no arguments", name)
		}
		return d, nil
	}

	switch name {
	case "move":
		xs, err := parseInts(name, args, 2, 2)
		if err != nil {
			return nil, err
		}
		return withLCD(s, func(_ context.Context, lcd *hd44780.LCD) error { return lcd.MoveCursor(xs[0], xs[1]) }), nil

	case "line":
		rowWord, text := splitWord(rest)
		row, err := strconv.Atoi(rowWord)
		if err != nil {
			return nil, errors.NotValidf("line row='%s'", rowWord)
		}
		return engine.Func{Name: s, F: func(ctx context.Context) error {
			d, err := state.GetGlobal(ctx).Display()
			if err != nil {
				return err
			}
			return d.SetLine(row, text)
		}}, nil

	case "write":
		return engine.Func{Name: s, F: func(ctx context.Context) error {
			g := state.GetGlobal(ctx)
			d, err := g.Display()
			if err != nil {
				return err
			}
			// trailing \x00 disables padding
			_, err = g.Hardware.HD44780.Device.Write(d.Translate(rest + "\x00"))
			return err
		}}, nil

	case "shift":
		if len(args) == 2 && args[1] != "cursor" {
			return nil, errors.NotValidf("shift N [cursor] got '%s'", rest)
		}
		xs, err := parseInts(name, args[:min(len(args), 1)], 1, 1)
		if err != nil {
			return nil, err
		}
		display := len(args) == 1
		return withLCD(s, func(_ context.Context, lcd *hd44780.LCD) error { return lcd.Shift(xs[0], display) }), nil

	case "blink", "cursor", "display", "backlight":
		if len(args) != 1 {
			return nil, errors.NotValidf("%s on|off got '%s'", name, rest)
		}
		on, err := remote.ParseSwitch(args[0])
		if err != nil {
			return nil, err
		}
		return withLCD(s, func(_ context.Context, lcd *hd44780.LCD) error {
			switch name {
			case "blink":
				return lcd.SetBlink(on)
			case "cursor":
				return lcd.SetCursor(on)
			case "display":
				return lcd.SetDisplay(on)
			}
			return lcd.SetBacklight(on)
		}), nil

	case "char":
		if len(args) < 2 {
			return nil, errors.NotValidf("char A XX... got '%s'", rest)
		}
		xs, err := parseInts(name, args[:1], 1, 1)
		if err != nil {
			return nil, err
		}
		if xs[0] < 0 || xs[0] > 7 {
			return nil, errors.NotValidf("char address=%d (expected 0-7)", xs[0])
		}
		glyph, err := hex.DecodeString(strings.Join(args[1:], ""))
		if err != nil || len(glyph) > 8 {
			return nil, errors.NotValidf("char glyph='%s' (expected up to 8 hex bytes)", strings.Join(args[1:], " "))
		}
		addr := byte(xs[0])
		return withLCD(s, func(_ context.Context, lcd *hd44780.LCD) error { return lcd.CreateChar(addr, glyph) }), nil

	case "reset":
		us := defaultResetMicros
		if len(args) != 0 {
			xs, err := parseInts(name, args, 1, 1)
			if err != nil {
				return nil, err
			}
			us = xs[0]
		}
		if us <= 0 {
			return nil, errors.NotValidf("reset duration=%dus", us)
		}
		return withLCD(s, func(_ context.Context, lcd *hd44780.LCD) error {
			if err := lcd.Reset(time.Duration(us) * time.Microsecond); err != nil {
				return err
			}
			return lcd.Begin()
		}), nil
	}

	if len(name) > 1 && name[0] == 's' && len(args) == 0 {
		i, err := strconv.ParseUint(name[1:], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", name)
		}
		return engine.Sleep{Duration: time.Duration(i) * time.Millisecond}, nil
	}
	return nil, errors.NotFoundf("command='%s'", name)
}

func parseInts(name string, args []string, minN, maxN int) ([]int, error) {
	if len(args) < minN || len(args) > maxN {
		return nil, errors.NotValidf("%s arguments count=%d", name, len(args))
	}
	xs := make([]int, len(args))
	for i, a := range args {
		x, err := strconv.Atoi(a)
		if err != nil {
			return nil, errors.NotValidf("%s argument='%s'", name, a)
		}
		xs[i] = x
	}
	return xs, nil
}

// splitWord returns first word and trimmed rest of line.
func splitWord(s string) (string, string) {
	i := strings.IndexAny(s, " \t")
	if i == -1 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

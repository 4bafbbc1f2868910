// Serve shows text received over MQTT until stopped.
package serve

import (
	"context"
	"sync"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/hd44780/cmd/hd44780/subcmd"
	"github.com/temoto/hd44780/hardware/text_display"
	"github.com/temoto/hd44780/helpers"
	"github.com/temoto/hd44780/internal/remote"
	"github.com/temoto/hd44780/log2"
	"github.com/temoto/hd44780/state"
	"github.com/temoto/hd44780/state/persist"
)

var Mod = subcmd.Mod{Name: "mqtt", Usage: "show text received over MQTT", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(config)
	if !config.Mqtt.Enabled {
		g.Log.Errorf("config: mqtt.enable=false, starting anyway")
	}
	subcmd.StopOnSignal(g.Alive)

	err := Serve(ctx)
	return helpers.FoldErrors([]error{err, g.Close(true)})
}

// Serve blocks until g.Alive is stopped.
func Serve(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	lcd, err := g.LCD()
	if err != nil {
		return errors.Annotate(err, "hd44780 init")
	}
	display := g.Hardware.HD44780.Display

	r, err := remote.New(g.Log, g.Config.Mqtt, display, lcd)
	if err != nil {
		return errors.Annotate(err, "remote")
	}
	stopKeep, err := keepDisplay(g.Log, display, g.Config.Persist.Root)
	if err != nil {
		return errors.Annotate(err, "persist")
	}
	go display.Run()
	defer func() {
		// scroll ticks must end before Global.Close releases the device
		display.Stop()
		stopKeep()
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- r.Run() }()
	select {
	case err = <-runErr:
		if err != nil {
			r.Stop()
			return errors.Annotate(err, "remote run")
		}
	case <-g.Alive.StopChan():
		r.Stop()
		return nil
	}

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Infof("remote ready")
	<-g.Alive.StopChan()
	r.Stop()
	return nil
}

// keepDisplay restores text from last run and stores every change.
// Returned stop detaches display and waits for pending stores.
func keepDisplay(log *log2.Log, display *text_display.TextDisplay, root string) (func(), error) {
	last := new(text_display.State)
	p := new(persist.Persist)
	if err := p.Init("display", last, root, log); err != nil {
		return nil, err
	}
	if !p.Enabled() {
		return func() {}, nil
	}
	if err := p.Load(); err != nil {
		log.Error(errors.Annotate(err, "display text not restored"))
	} else if last.Lines != nil {
		if err := display.SetLinesBytes(last.Lines...); err != nil {
			return nil, errors.Annotate(err, "display restore")
		}
		log.Debugf("display restored text=%q", last.String())
	}

	ch := make(chan text_display.State, 8)
	done := make(chan struct{})
	display.SetUpdateChan(ch)
	go func() {
		defer close(done)
		storeUpdates(log, p, last, ch)
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			display.SetUpdateChan(nil)
			close(ch)
			<-done
		})
	}
	return stop, nil
}

// storeUpdates runs until ch is closed. Scroll ticks repeat same text and are skipped.
func storeUpdates(log *log2.Log, p *persist.Persist, last *text_display.State, ch <-chan text_display.State) {
	for s := range ch {
		if s.Equal(*last) {
			continue
		}
		p.Lock()
		*last = s
		p.Unlock()
		if err := p.Store(); err != nil {
			log.Error(err)
		}
	}
}

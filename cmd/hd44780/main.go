package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/hd44780/cmd/hd44780/cli"
	"github.com/temoto/hd44780/cmd/hd44780/demo"
	"github.com/temoto/hd44780/cmd/hd44780/serve"
	"github.com/temoto/hd44780/cmd/hd44780/subcmd"
	"github.com/temoto/hd44780/log2"
	"github.com/temoto/hd44780/state"
)

var log = log2.NewStderr(log2.LDebug)

var modules = []subcmd.Mod{
	cli.Mod,
	demo.Mod,
	serve.Mod,
}

func main() {
	flaghelp := fmt.Sprintf("subcommand: %s", commandNames())
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "hd44780.hcl", "")
	cmdline.Usage = func() {
		fmt.Fprintf(cmdline.Output(), "Usage: %s [option] command\n\n%s\n\nOptions:\n", os.Args[0], usageModules())
		cmdline.PrintDefaults()
	}
	if err := cmdline.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	mod, err := subcmd.Parse(cmdline.Arg(0), modules)
	if err != nil {
		log.Fatalf("%s\n%s", err.Error(), flaghelp)
	}

	if subcmd.SdNotify("start") {
		// under systemd, journal adds timestamps
		log.SetFlags(0)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	log.SetPrefix(mod.Name + ": ")
	config := state.MustReadConfig(log, state.NewOsFullReader("."), *flagConfig)

	ctx, _ := state.NewContext(log)
	if err := mod.Main(ctx, config); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}

func commandNames() []string {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.Name
	}
	return names
}

func usageModules() string {
	s := "Commands:"
	for _, m := range modules {
		s += fmt.Sprintf("\n  %-8s %s", m.Name, m.Usage)
	}
	return s
}

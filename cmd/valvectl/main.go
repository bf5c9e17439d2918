// Command valvectl is the terminal front-end for remote valve control:
// sign in, watch devices, drive pistons, manage schedules and read history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"piston_control/internal/config"
	"piston_control/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("valvectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to valvectl.yml (default: configs/valvectl.yml)")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() == 0 || fs.Arg(0) == "help" {
		fs.Usage()
		return 0
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "valvectl:", err)
		return 1
	}
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log, stdout)
	if err != nil {
		fmt.Fprintln(stderr, "valvectl:", err)
		return 1
	}
	defer a.Close()

	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(stderr, "valvectl:", err)
		return 1
	}
	return 0
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: valvectl [-config file] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags:")
	fs.PrintDefaults()
}

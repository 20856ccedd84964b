package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/configstore"
	"github.com/prairiedogbeer/fermenator/flightrecorder"
	"github.com/prairiedogbeer/fermenator/logging"
	"github.com/prairiedogbeer/fermenator/supervisor"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// Exit codes: 0 normal, 1 configuration invalid, 2 fatal runtime error,
// 130 on user interrupt.
const (
	exitOK            = 0
	exitConfigInvalid = 1
	exitFatal         = 2
	exitInterrupted   = 130
)

func run(args []string) int {
	fs := flag.NewFlagSet("fermenator", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose logging")
	extraVerbose := fs.Bool("vv", false, "extra-verbose logging")
	logFile := fs.String("log-file", "", "write logs to this file instead of stderr")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return exitConfigInvalid
	}

	if *showVersion {
		fmt.Println("fermenator " + version)
		return exitOK
	}

	cmd := "run"
	if fs.NArg() > 0 {
		cmd = fs.Arg(0)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %s\n", err)
	}

	level := "info"
	switch {
	case *extraVerbose:
		level = "trace"
	case *verbose:
		level = "debug"
	}

	var out io.Writer = os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open log file %s: %s\n", *logFile, err)
			return exitFatal
		}
		defer f.Close()
		out = f
	}

	log, err := logging.New(level, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logging: %s\n", err)
		return exitFatal
	}
	entry := logging.For(log, "main", cmd)

	desc, err := configstore.LoadBootstrapDescriptor()
	if err != nil {
		entry.WithError(err).Error("could not load bootstrap descriptor")
		return exitConfigInvalid
	}
	store, err := buildStore(desc)
	if err != nil {
		entry.WithError(err).Error("could not build config store from bootstrap descriptor")
		return exitConfigInvalid
	}

	var rec *flightrecorder.Recorder
	if path, ok := desc.Bootstrap.Config["flight_recorder_path"].(string); ok && path != "" {
		rec, err = flightrecorder.Open(path)
		if err != nil {
			entry.WithError(err).Error("could not open flight recorder database")
			return exitFatal
		}
		defer rec.Close()
	}

	switch cmd {
	case "run":
		return runSupervisor(store, rec, entry)
	case "init":
		return runInit(store, rec, entry)
	default:
		entry.Errorf("unknown command %q", cmd)
		return exitConfigInvalid
	}
}

// buildStore constructs the ConfigStore variant named by the bootstrap
// descriptor. "Inline" is intentionally absent here: an inline spec has
// no remote shape to decode from a bootstrap file and is only reachable
// by embedding fermenator as a library.
func buildStore(desc *configstore.BootstrapDescriptor) (configstore.Store, error) {
	cfg := desc.Bootstrap.Config
	refresh := 5 * time.Minute
	if v, ok := cfg["refresh_interval"]; ok {
		if f, ok := v.(float64); ok {
			refresh = time.Duration(f) * time.Second
		}
	}

	switch desc.Bootstrap.Type {
	case "TabularSheet":
		ssID, _ := cfg["spreadsheet_id"].(string)
		return configstore.NewTabularSheet(desc.Bootstrap.Name, ssID, refresh, cfg)
	case "RemoteKV":
		root, _ := cfg["root_path"].(string)
		return configstore.NewRemoteKV(desc.Bootstrap.Name, root, refresh, cfg)
	default:
		return nil, fmt.Errorf("unknown bootstrap ConfigStore type %q", desc.Bootstrap.Type)
	}
}

// runSupervisor starts the supervisory loop and blocks until an
// interrupt/terminate signal or a fatal startup error, translating the
// signal into the Supervisor's stop context rather than touching relays
// directly.
func runSupervisor(store configstore.Store, rec *flightrecorder.Recorder, log *logrus.Entry) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	interrupted := false
	go func() {
		<-sigCh
		interrupted = true
		log.Info("received shutdown signal")
		cancel()
	}()

	sup := supervisor.New(store, log, supervisor.DefaultManagerStopTimeout, rec)
	if err := sup.Run(ctx); err != nil {
		log.WithError(err).Error("supervisor exited with error")
		return exitFatal
	}

	if interrupted {
		return exitInterrupted
	}
	return exitOK
}

// runInit assembles the configured graph just long enough to command
// every relay off, then disassembles and exits. Used at boot to override
// hardware that defaults to energized-high on power-up.
func runInit(store configstore.Store, rec *flightrecorder.Recorder, log *logrus.Entry) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := supervisor.New(store, log, supervisor.DefaultManagerStopTimeout, rec)
	if err := sup.Assemble(ctx); err != nil {
		log.WithError(err).Error("init: could not assemble configuration")
		return exitConfigInvalid
	}
	sup.Disassemble()
	return exitOK
}

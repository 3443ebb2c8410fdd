// cmd/dronebot/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Command dronebot is the companion-computer controller: it loads the
// grammar vocabulary, connects to the flight controller transport, and
// runs the command pipeline until stdin closes or a signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonce-m/dronebot/pkg/controller"
	"github.com/leonce-m/dronebot/pkg/log"
	"github.com/leonce-m/dronebot/pkg/transport"
	"github.com/leonce-m/dronebot/pkg/util"
	"github.com/leonce-m/dronebot/pkg/vocab"
)

var (
	callSign     = flag.String("c", "cityairbus1234", "aircraft call sign (long form: -call_sign)")
	callSignLong = flag.String("call_sign", "", "aircraft call sign")
	serial       = flag.String("s", "udp://:14550", "flight-controller transport URI (long form: -serial)")
	serialLong   = flag.String("serial", "", "flight-controller transport URI")
	verbose      = flag.Bool("v", false, "set log level to debug (long form: -verbose)")
	verboseLong  = flag.Bool("verbose", false, "set log level to debug")
	restore      = flag.Bool("r", false, "restore flight phase from persistence (long form: -restore)")
	restoreLong  = flag.Bool("restore", false, "restore flight phase from persistence")
	grammar      = flag.String("grammar", "config/grammar.yaml", "path to the grammar configuration YAML")
	logDir       = flag.String("logdir", "logs", "log file directory")
)

func resolve(short, long string) string {
	if long != "" {
		return long
	}
	return short
}

func main() {
	flag.Parse()

	cs := resolve(*callSign, *callSignLong)
	systemAddress := resolve(*serial, *serialLong)
	debug := *verbose || *verboseLong
	doRestore := *restore || *restoreLong

	lg := log.New(util.Select(debug, "debug", "info"), *logDir)

	v, err := vocab.Load(*grammar)
	if err != nil {
		lg.Errorf("loading grammar %q: %v", *grammar, err)
		os.Exit(1)
	}

	drone := transport.NewSimDrone(transport.Position{})

	ctrl := controller.New(controller.Config{
		CallSign:      cs,
		SystemAddress: systemAddress,
		Restore:       doRestore,
	}, v, drone, lg)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		lg.Infof("caught signal %v, shutting down", sig)
		cancel()
	}()

	go renderVoice(ctrl, lg)

	if err := ctrl.Startup(ctx); err != nil {
		lg.Errorf("startup failed: %v", err)
		os.Exit(1)
	}

	runErr := ctrl.Run(ctx)
	cancel()
	ctrl.Shutdown()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "dronebot: %v\n", runErr)
		os.Exit(1)
	}
	os.Exit(0)
}

// renderVoice is the downstream text-to-speech sink's stand-in: actual
// audio rendering is an external collaborator, so this logs every
// finished utterance at Info level instead.
func renderVoice(ctrl *controller.Controller, lg *log.Logger) {
	for sentence := range ctrl.VoiceOut() {
		lg.Infof("voice: %s", sentence)
	}
}

// pkg/controller/controller.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package controller implements the top-level supervisor: the startup
// handshake and preflight checks, and the concurrent run loop that
// drives the input reader, health monitor, telemetry subscribers, and
// command executor until shutdown, including an emergency
// return-to-launch on an uncaught exception or an operator-injected
// "rtb".
package controller

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leonce-m/dronebot/pkg/command"
	"github.com/leonce-m/dronebot/pkg/flightstate"
	"github.com/leonce-m/dronebot/pkg/log"
	"github.com/leonce-m/dronebot/pkg/parser"
	"github.com/leonce-m/dronebot/pkg/telemetry"
	"github.com/leonce-m/dronebot/pkg/transport"
	"github.com/leonce-m/dronebot/pkg/util"
	"github.com/leonce-m/dronebot/pkg/vocab"
	"github.com/leonce-m/dronebot/pkg/voice"
)

const (
	defaultTakeoffAltitudeM = 5.0
	defaultRTLAltitudeM     = 20.0

	preflightMaxAttempts   = 5
	preflightRetryDelay    = 2 * time.Second
	connectionPollInterval = 100 * time.Millisecond

	shutdownDrainTimeout = 15 * time.Second
	rtbTimeout           = 45 * time.Second
)

// Config bundles the controller's CLI-derived parameters.
type Config struct {
	CallSign      string
	SystemAddress string
	Restore       bool
}

// Controller is the top-level supervisor. It owns every other
// component's lifetime and wires the command queue and voice queue
// between the flight state machine and their respective consumers.
type Controller struct {
	cfg   Config
	drone transport.Drone
	lg    *log.Logger

	telemetry *telemetry.Cache
	parser    *parser.Parser
	queue     *command.Queue
	voiceQ    *voice.Queue
	state     *flightstate.Machine
	mc        *command.MissionContext

	wg sync.WaitGroup // in-flight spawned commands, drained at shutdown
}

func New(cfg Config, v *vocab.Vocabulary, drone transport.Drone, lg *log.Logger) *Controller {
	tc := telemetry.New(drone, lg)
	queue := command.NewQueue()
	voiceQ := voice.New("atc", cfg.CallSign)

	return &Controller{
		cfg:       cfg,
		drone:     drone,
		lg:        lg,
		telemetry: tc,
		parser:    parser.New(v, cfg.CallSign, lg),
		queue:     queue,
		voiceQ:    voiceQ,
		state:     flightstate.New(queue, voiceQ, lg),
		mc:        command.NewMissionContext(),
	}
}

// VoiceOut exposes the finished-sentence channel for a renderer (TTS
// engine, log sink, test spy) to consume. Rendering itself is out of
// scope for the controller.
func (c *Controller) VoiceOut() <-chan string { return c.voiceQ.Out() }

// Startup runs the connect handshake, preflight health checks, and
// default takeoff/return-to-launch altitude configuration. It must
// complete before Run is called.
func (c *Controller) Startup(ctx context.Context) error {
	if err := c.drone.Connect(ctx, c.cfg.SystemAddress); err != nil {
		return transport.NewActionError(err)
	}

	ticker := time.NewTicker(connectionPollInterval)
	defer ticker.Stop()
	for {
		connected, err := c.drone.IsConnected(ctx)
		if err == nil && connected {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	c.lg.Infof("connected to flight controller at %s", c.cfg.SystemAddress)

	if err := c.preflight(ctx); err != nil {
		return err
	}

	if err := c.drone.SetTakeoffAltitude(ctx, defaultTakeoffAltitudeM); err != nil {
		return transport.NewActionError(err)
	}
	if err := c.drone.SetReturnToLaunchAltitude(ctx, defaultRTLAltitudeM); err != nil {
		return transport.NewActionError(err)
	}

	if c.cfg.Restore {
		if err := c.state.Restore(flightstate.DefaultSavePath); err == nil {
			c.lg.Infof("restored flight phase: %s", c.state.Phase())
		}
	}

	return nil
}

// preflight retries health_all_ok up to preflightMaxAttempts times,
// logging the specific failing checks on each failed attempt, and
// returns ErrControl once the budget is exhausted.
func (c *Controller) preflight(ctx context.Context) error {
	for attempt := 1; attempt <= preflightMaxAttempts; attempt++ {
		ok, err := c.drone.HealthAllOK(ctx)
		if err == nil && ok {
			return nil
		}

		if detail, derr := c.drone.HealthDetail(ctx); derr == nil {
			checks := util.SortedMapKeys(detail)
			failing := util.FilterSlice(checks, func(check string) bool { return !detail[check] })
			c.lg.Warnf("preflight attempt %d/%d failed, outstanding checks: %v", attempt, preflightMaxAttempts, failing)
		} else {
			c.lg.Warnf("preflight attempt %d/%d failed: %v", attempt, preflightMaxAttempts, err)
		}

		if attempt == preflightMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(preflightRetryDelay):
		}
	}
	return fmt.Errorf("%w: preflight checks did not pass after %d attempts", ErrControl, preflightMaxAttempts)
}

// Run drives monitor_atc, monitor_health, the telemetry subscribers, and
// the command executor concurrently until ctx is cancelled. A transport
// error from any of them is logged and the group is re-entered; any
// other error triggers an emergency return-to-launch and Run returns it.
func (c *Controller) Run(ctx context.Context) error {
	lines := make(chan string)
	go c.readStdin(ctx, lines)

	for {
		err := c.runOnce(ctx, lines)
		if ctx.Err() != nil || err == nil {
			return nil
		}
		if transport.IsTransport(err) {
			c.lg.Warnf("transport error in run loop, re-entering: %v", err)
			continue
		}

		c.lg.Errorf("uncaught error, initiating emergency shutdown: %v\n%v", err, log.Callstack(nil))
		rtbCtx, cancel := context.WithTimeout(context.Background(), rtbTimeout)
		if rtbErr := c.flyRTB(rtbCtx); rtbErr != nil {
			c.lg.Errorf("emergency return-to-launch failed: %v", rtbErr)
		}
		cancel()
		return err
	}
}

func (c *Controller) runOnce(ctx context.Context, lines <-chan string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.monitorATC(gctx, lines) })
	g.Go(func() error { c.telemetry.SubscribePosition(gctx); return nil })
	g.Go(func() error { c.telemetry.SubscribeState(gctx); return nil })
	g.Go(func() error {
		c.telemetry.SubscribeHealth(gctx, func(bool) { c.telemetry.PrintStatus(gctx) })
		return nil
	})
	g.Go(func() error { return c.flyCommands(gctx) })
	return g.Wait()
}

// monitorATC announces the initial "full"/"request IFR clearance"
// greeting, then reads one input line at a time (delivered from the
// dedicated stdin-reading goroutine), running each through the parser
// and the flight state machine. The literal input "rtb" is an
// operator-injected return-to-base override distinct from ATC
// phraseology; it returns ErrControl.
func (c *Controller) monitorATC(ctx context.Context, lines <-chan string) error {
	c.voiceQ.SpeakNow("full")
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(time.Second):
	}
	c.voiceQ.SpeakNow("request IFR clearance")

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				return nil
			}
			if trimmed == "rtb" {
				return fmt.Errorf("%w: operator requested return to base", ErrControl)
			}
			records := c.parser.HandleCommand(line)
			c.state.HandleCommands(records)
		}
	}
}

// readStdin is the one blocking executor thread used exclusively for
// the synchronous stdin read. It runs for the program's lifetime,
// independent of how many times runOnce re-enters the supervised group.
func (c *Controller) readStdin(ctx context.Context, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		select {
		case <-ctx.Done():
			return
		case out <- line:
		}
		if strings.TrimSpace(line) == "" {
			return
		}
	}
}

// flyCommands dequeues commands and spawns each as an independent task;
// a transport error from any spawned task is surfaced to the supervised
// group so the run loop can log it and re-enter.
func (c *Controller) flyCommands(ctx context.Context) error {
	cmdCh := make(chan command.Command)
	go func() {
		defer close(cmdCh)
		for {
			cmd, ok := c.queue.Pop(ctx)
			if !ok {
				return
			}
			select {
			case cmdCh <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 16)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case cmd, ok := <-cmdCh:
			if !ok {
				return nil
			}
			c.wg.Add(1)
			go func(cmd command.Command) {
				defer c.wg.Done()
				if err := cmd.Execute(ctx, c.drone, c.mc, c.telemetry); err != nil && ctx.Err() == nil {
					select {
					case errCh <- err:
					default:
						c.lg.Errorf("command execution error dropped: %v", err)
					}
				}
			}(cmd)
		}
	}
}

// flyRTB issues a return-to-launch, waits for the drone to land, and
// disarms -- the emergency fallback on an uncaught exception.
func (c *Controller) flyRTB(ctx context.Context) error {
	c.lg.Warnf("emergency return to launch")
	if err := c.drone.ReturnToLaunch(ctx); err != nil {
		return transport.NewActionError(err)
	}

	landCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	c.telemetry.WaitForLanded(landCtx, 10)

	if err := c.drone.Disarm(ctx); err != nil {
		return transport.NewActionError(err)
	}
	return nil
}

// Shutdown drains in-flight commands (bounded by shutdownDrainTimeout)
// and persists the current flight phase. Callers should invoke this
// after Run returns, with tasks already cancelled via ctx.
func (c *Controller) Shutdown() {
	drained := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownDrainTimeout):
		c.lg.Warnf("shutdown: timed out waiting for in-flight commands to drain")
	}

	if err := c.state.Save(flightstate.DefaultSavePath); err != nil {
		c.lg.Warnf("saving flight state failed: %v", err)
	}
}

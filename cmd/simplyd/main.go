// cmd/simplyd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/simply/internal/asyncmsg"
	"github.com/tamzrod/simply/internal/config"
	"github.com/tamzrod/simply/internal/connector"
	"github.com/tamzrod/simply/internal/device"
	"github.com/tamzrod/simply/internal/dispatcher"
	"github.com/tamzrod/simply/internal/network"
	"github.com/tamzrod/simply/internal/network/serial"
	"github.com/tamzrod/simply/internal/network/udp"
	"github.com/tamzrod/simply/internal/poller"
	"github.com/tamzrod/simply/internal/protocol"
	"github.com/tamzrod/simply/internal/protocol/dpa"
	"github.com/tamzrod/simply/internal/writer"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:      "simplyd",
		Usage:     "IQRF DPA connector daemon",
		ArgsUsage: "[config.yaml|config.toml]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   env.ConfigPath,
				Usage:   "configuration file (yaml or toml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: env.LogLevel,
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: env.LogFormat,
				Usage: "text or json",
			},
		},
		Action: func(c *cli.Context) error {
			cfgPath := c.String("config")
			if c.Args().Present() {
				cfgPath = c.Args().First()
			}

			log := newLogger(c.String("log-level"), c.String("log-format"))

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfgPath, log); err != nil {
				log.Error("simplyd failed", "err", err)
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(levelName, format string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

func run(ctx context.Context, cfgPath string, log *slog.Logger) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	log = log.With("network", cfg.Network.ID)

	// --------------------
	// Network + protocol layers
	// --------------------

	netLayer, err := buildNetwork(cfg.Network, log)
	if err != nil {
		return fmt.Errorf("network build failed: %w", err)
	}

	hwProfile := dpa.DefaultHWProfile
	if cfg.Protocol.HWProfile != nil {
		hwProfile = *cfg.Protocol.HWProfile
	}
	protoOpts := []protocol.Option{protocol.WithLogger(log)}
	if cfg.Protocol.MaxRequestDuration > 0 {
		protoOpts = append(protoOpts, protocol.WithMaxRequestDuration(cfg.Protocol.RequestLifetime()))
	}
	proto, err := protocol.NewFramed(netLayer, dpa.NewCodec(hwProfile, cfg.Protocol.Peripherals), protoOpts...)
	if err != nil {
		return fmt.Errorf("protocol build failed: %w", err)
	}
	defer func() {
		if err := proto.Close(); err != nil && !errors.Is(err, network.ErrClosed) {
			log.Warn("network close failed", "err", err)
		}
	}()

	// --------------------
	// Connector
	// --------------------

	settings, err := cfg.Connector.Type.ResponseWaiting.Apply(dispatcher.DefaultSettings())
	if err != nil {
		return fmt.Errorf("connector settings: %w", err)
	}
	connOpts := []connector.Option{
		connector.WithLogger(log),
		connector.WithResponseWaiting(settings),
		connector.WithAsyncOffload(cfg.Connector.AsyncOffload),
	}
	if idle, ok := cfg.Connector.MaxIdleTime(); ok {
		connOpts = append(connOpts, connector.WithMaxIdleTime(idle))
	}

	conn, err := connector.New(proto, connOpts...)
	if err != nil {
		return fmt.Errorf("connector build failed: %w", err)
	}
	defer conn.Stop()

	if err := conn.RegisterAsyncListener(&asyncLogger{log: log}, asyncmsg.Filter{NetworkID: cfg.Network.ID}); err != nil {
		return err
	}

	if err := conn.Start(); err != nil {
		return err
	}

	// --------------------
	// Export (optional)
	// --------------------

	orch := &orchestrator{
		stats:   conn,
		polling: len(cfg.Poll.Reads) > 0,
		log:     log,
	}

	plan, exportEnabled, err := writer.BuildPlan(cfg)
	if err != nil {
		return fmt.Errorf("writer plan failed: %w", err)
	}
	if exportEnabled {
		cli, err := writer.BuildEndpointClient(*cfg.Export)
		if err != nil {
			return fmt.Errorf("export client failed: %w", err)
		}
		defer cli.Close()

		if len(plan.Targets) > 0 {
			orch.data = writer.New(plan, cli)
		}
		if sw, ok := writer.NewDeviceStatusWriter(plan, cli); ok {
			orch.status = sw
		}
	}

	// --------------------
	// Poller (optional)
	// --------------------

	var p *poller.Poller
	if orch.polling {
		nodes, err := device.NewNetwork(conn, cfg.Network.ID)
		if err != nil {
			return err
		}
		nodes.WaitingTimeout = cfg.Connector.WaitingTimeout(device.DefaultWaitingTimeout)

		p, err = poller.Build(cfg.Network.ID, cfg.Poll, nodes)
		if err != nil {
			return fmt.Errorf("poller build failed: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var results chan poller.PollResult
	if p != nil {
		results = make(chan poller.PollResult)
		g.Go(func() error {
			p.Run(gctx, results)
			return nil
		})
	}

	g.Go(func() error {
		return orch.run(gctx, results)
	})

	log.Info("simplyd running", "config", cfgPath, "polling", orch.polling, "export", exportEnabled)

	err = g.Wait()
	log.Info("simplyd stopping")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildNetwork(n config.NetworkConfig, log *slog.Logger) (network.Layer, error) {
	switch n.Type {
	case "serial":
		return serial.New(serial.Config{
			NetworkID:   n.ID,
			Address:     n.Serial.Address,
			BaudRate:    n.Serial.BaudRate,
			ReadTimeout: n.Serial.ReadTimeout(),
		}, serial.WithLogger(log))
	case "udp":
		return udp.New(udp.Config{
			NetworkID:  n.ID,
			RemoteAddr: n.UDP.RemoteAddr,
			LocalAddr:  n.UDP.LocalAddr,
		}, udp.WithLogger(log))
	default:
		return nil, fmt.Errorf("unknown network type %q", n.Type)
	}
}

// asyncLogger reports unsolicited node messages.
type asyncLogger struct {
	log *slog.Logger
}

func (a *asyncLogger) OnAsynchronousMessage(msg asyncmsg.Message) {
	a.log.Info("asynchronous message", "msg", msg.String())
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acbench/modbus"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

// Options are the command line settings of the simulator. Any option given overrides the config file.
type Options struct {
	Config    string `short:"c" long:"config" description:"YAML configuration file" env:"MBSIM_CONFIG"`
	Address   string `short:"a" long:"address" description:"Address to listen on (default 0.0.0.0)" env:"MBSIM_ADDRESS"`
	Port      int    `short:"p" long:"port" description:"TCP port to listen on (default 502)" env:"MBSIM_PORT"`
	Unit      int    `short:"u" long:"unit" description:"Slave/unit id to answer for (default 1)" env:"MBSIM_UNIT"`
	Registers int    `short:"r" long:"registers" description:"Number of holding registers (default 120)" env:"MBSIM_REGISTERS"`
	LogLevel  string `short:"l" long:"log-level" description:"Log level: debug, info, warn or error" env:"MBSIM_LOG_LEVEL"`
	Shutdown  int    `long:"shutdown-timeout" default:"5" description:"Seconds to wait for open connections on shutdown"`
}

// buildConfig loads the config file, if any, and applies the options the user set.
func buildConfig(opts *Options, parser *flags.Parser) (modbus.Config, error) {
	cfg := modbus.DefaultConfig()
	if opts.Config != "" {
		var err error
		cfg, err = modbus.LoadConfig(opts.Config)
		if err != nil {
			return cfg, err
		}
	}

	isSet := func(name string) bool {
		opt := parser.FindOptionByLongName(name)
		return opt != nil && opt.IsSet()
	}
	if isSet("address") {
		cfg.Address = opts.Address
	}
	if isSet("port") {
		cfg.Port = opts.Port
	}
	if isSet("unit") {
		cfg.UnitID = opts.Unit
	}
	if isSet("registers") {
		cfg.Registers = opts.Registers
	}
	if isSet("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg, cfg.Validate()
}

// start builds the register bank and the server for cfg, and listens on the configured address.
func start(cfg modbus.Config, log *logrus.Logger) (*modbus.TCPServer, *modbus.Server, error) {
	bank, err := modbus.NewRegisterBank(cfg.Registers, modbus.NewChangeLogger(cfg.Labels, log))
	if err != nil {
		return nil, nil, err
	}
	server, err := modbus.NewServer(modbus.ServerConfig{
		UnitID:   cfg.UnitID,
		Bank:     bank,
		ServerID: cfg.ServerID,
		Identity: cfg.Identity,
		Logger:   log,
	})
	if err != nil {
		return nil, nil, err
	}

	tcpserv, err := modbus.NewTCPServer(cfg.ListenAddress(), server, log)
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(logrus.Fields{
		"address":   tcpserv.Addr().String(),
		"unit":      cfg.UnitID,
		"registers": cfg.Registers,
	}).Infof("Modbus TCP simulator for %v listening on %v", cfg.Identity.ProductName, tcpserv.Addr())
	return tcpserv, server, nil
}

// serve runs until ctx is cancelled, then shuts tcpserv down, waiting up to shutdown for open
// connections.
func serve(ctx context.Context, tcpserv *modbus.TCPServer, server *modbus.Server, shutdown time.Duration, log *logrus.Logger) error {
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-waitClosed(tcpserv):
		return errors.New("listener closed unexpectedly")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()
	if err := tcpserv.Shutdown(sctx); err != nil {
		log.WithError(err).Warn("connections did not finish in time")
	}
	log.WithField("diagnostics", fmt.Sprintf("%+v", server.Diagnostics())).Info("stopped")
	return nil
}

func waitClosed(tcpserv *modbus.TCPServer) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		tcpserv.WaitClosed()
		close(ch)
	}()
	return ch
}

func main() {
	opts := Options{}
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := buildConfig(&opts, parser)
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	level, _ := cfg.Level()
	log.SetLevel(level)

	tcpserv, server, err := start(cfg, log)
	if err != nil {
		log.WithError(err).Error(failureMessage(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, tcpserv, server, time.Second*time.Duration(opts.Shutdown), log); err != nil {
		log.WithError(err).Error(failureMessage(err))
		os.Exit(1)
	}
}

// failureMessage summarises a fatal error. The error itself carries any remediation.
func failureMessage(err error) string {
	if errors.Is(err, modbus.ErrBindPermission) {
		return "permission denied binding the Modbus port"
	}
	return "simulator failed"
}

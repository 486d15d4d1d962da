package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/acbench/modbus"
	gomodbus "github.com/goburrow/modbus"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOptions(t *testing.T, args ...string) (*Options, *flags.Parser) {
	t.Helper()
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(args)
	require.NoError(t, err)
	return opts, parser
}

func TestBuildConfigDefaults(t *testing.T) {
	opts, parser := parseOptions(t)
	cfg, err := buildConfig(opts, parser)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:502", cfg.ListenAddress())
	assert.Equal(t, 1, cfg.UnitID)
	assert.Equal(t, 120, cfg.Registers)
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 1502\nunit_id: 4\nregisters: 150\n"), 0o644))

	opts, parser := parseOptions(t, "-c", path, "--port", "5020", "-a", "127.0.0.1")
	cfg, err := buildConfig(opts, parser)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5020", cfg.ListenAddress())
	assert.Equal(t, 4, cfg.UnitID)
	assert.Equal(t, 150, cfg.Registers)

	// an explicit port 0 asks for any free port
	opts, parser = parseOptions(t, "-c", path, "-p", "0")
	cfg, err = buildConfig(opts, parser)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Port)
}

func TestBuildConfigRejectsInvalidFlags(t *testing.T) {
	opts, parser := parseOptions(t, "--unit", "248")
	_, err := buildConfig(opts, parser)
	assert.Error(t, err)

	opts, parser = parseOptions(t, "--registers", "10")
	_, err = buildConfig(opts, parser)
	assert.Error(t, err)
}

func localConfig() modbus.Config {
	cfg := modbus.DefaultConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	return cfg
}

func TestServeStopsWhenCancelled(t *testing.T) {
	log, hook := test.NewNullLogger()
	tcpserv, server, err := start(localConfig(), log)
	require.NoError(t, err)
	addr := tcpserv.Addr().String()

	handler := gomodbus.NewTCPClientHandler(addr)
	handler.SlaveId = 1
	handler.Timeout = 5 * time.Second
	require.NoError(t, handler.Connect())
	_, err = gomodbus.NewClient(handler).WriteSingleRegister(4, 22)
	require.NoError(t, err)
	handler.Close()

	// stands in for SIGINT arriving on the signal context
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- serve(ctx, tcpserv, server, time.Second, log)
	}()
	cancel()

	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Equal(t, "stopped", hook.LastEntry().Message)
	assert.Equal(t, 1, server.Diagnostics().ServerMessages)

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err, "listener should be closed")
}

func TestStartReportsBindFailures(t *testing.T) {
	log, _ := test.NewNullLogger()
	first, _, err := start(localConfig(), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		first.Close()
	})

	cfg := localConfig()
	cfg.Port = first.Addr().(*net.TCPAddr).Port
	_, _, err = start(cfg, log)
	require.Error(t, err)
	assert.ErrorIs(t, err, modbus.ErrBindInUse)
	assert.Equal(t, "simulator failed", failureMessage(err))
}

func TestFailureMessage(t *testing.T) {
	perm := fmt.Errorf("listen: %w", modbus.ErrBindPermission)
	assert.Equal(t, "permission denied binding the Modbus port", failureMessage(perm))
	assert.Equal(t, "simulator failed", failureMessage(fmt.Errorf("other")))
}

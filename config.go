package modbus

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the static configuration of a simulator instance, usually loaded from YAML.
type Config struct {
	Address   string         `yaml:"address"`
	Port      int            `yaml:"port"`
	UnitID    int            `yaml:"unit_id"`
	Registers int            `yaml:"registers"`
	Labels    RegisterLabels `yaml:"labels"`
	Identity  Identity       `yaml:"identity"`
	ServerID  string         `yaml:"server_id"`
	LogLevel  string         `yaml:"log_level"`
}

// DefaultConfig returns the configuration of the AC unit simulator: all interfaces on the standard
// Modbus port, unit 1, 120 registers.
func DefaultConfig() Config {
	return Config{
		Address:   "0.0.0.0",
		Port:      502,
		UnitID:    1,
		Registers: MinRegisters,
		Labels:    DefaultLabels(),
		Identity:  DefaultIdentity(),
		ServerID:  "AC Unit Simulator",
		LogLevel:  "info",
	}
}

// LoadConfig reads the YAML file at path over DefaultConfig. Labels in the file are added to, or
// replace, the default labels. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %v: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %v: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the ranges of the numeric settings, the log level and the lengths of the
// server id and identity objects.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %v outside 0..65535", c.Port)
	}
	if c.UnitID < 1 || c.UnitID > 247 {
		return fmt.Errorf("unit id %v outside 1..247", c.UnitID)
	}
	if c.Registers < MinRegisters || c.Registers > MaxRegisters {
		return fmt.Errorf("register count %v outside %v..%v", c.Registers, MinRegisters, MaxRegisters)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := checkServerID(c.ServerID); err != nil {
		return err
	}
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	return nil
}

// ListenAddress joins Address and Port for NewTCPServer.
func (c Config) ListenAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// Level parses LogLevel. An empty level means info.
func (c Config) Level() (logrus.Level, error) {
	if c.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(c.LogLevel)
}

package wsserver

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/riverline/holdem-table/internal/table"
)

// ServerConfig is the top-level HCL document for a tableserver process.
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
}

// ServerSettings holds the process-level tunables.
type ServerSettings struct {
	Address              string `hcl:"address,optional"`
	Port                 int    `hcl:"port,optional"`
	LogLevel             string `hcl:"log_level,optional"`
	EmptyTableReapSeconds int   `hcl:"empty_table_reap_seconds,optional"`
}

// TableSettings mirrors table.Config in HCL-decodable form; durations
// are expressed as whole seconds since gohcl has no time.Duration tag.
type TableSettings struct {
	MaxPlayers            int `hcl:"max_players,optional"`
	SmallBlind            int `hcl:"small_blind,optional"`
	BigBlind              int `hcl:"big_blind,optional"`
	StartingStack         int `hcl:"starting_stack,optional"`
	ActionTimeoutSeconds  int `hcl:"action_timeout_seconds,optional"`
	PayoutDisplaySeconds  int `hcl:"payout_display_seconds,optional"`
	InterHandDelaySeconds int `hcl:"inter_hand_delay_seconds,optional"`
}

// DefaultServerConfig matches spec.md §6's stated defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:               "localhost",
			Port:                  8080,
			LogLevel:              "info",
			EmptyTableReapSeconds: 300,
		},
		Table: TableSettings{
			MaxPlayers:            5,
			SmallBlind:            5,
			BigBlind:              10,
			StartingStack:         1000,
			ActionTimeoutSeconds:  20,
			PayoutDisplaySeconds:  3,
			InterHandDelaySeconds: 2,
		},
	}
}

// LoadServerConfig reads filename as HCL, falling back to defaults if
// the file doesn't exist.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("wsserver: parse %s: %s", filename, diags.Error())
	}

	cfg := DefaultServerConfig()
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("wsserver: decode %s: %s", filename, diags.Error())
	}
	return cfg, nil
}

// Validate checks the loaded configuration for internal consistency.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("wsserver: invalid port %d", c.Server.Port)
	}
	if c.Table.SmallBlind <= 0 {
		return fmt.Errorf("wsserver: small blind must be positive")
	}
	if c.Table.BigBlind <= c.Table.SmallBlind {
		return fmt.Errorf("wsserver: big blind must exceed small blind")
	}
	if c.Table.MaxPlayers < 2 || c.Table.MaxPlayers > 10 {
		return fmt.Errorf("wsserver: max players must be between 2 and 10")
	}
	return nil
}

// Address returns the host:port string to bind.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TableConfig converts the HCL table block into a table.Config.
func (c *ServerConfig) TableConfig() table.Config {
	return table.Config{
		MaxPlayers:     c.Table.MaxPlayers,
		SmallBlind:     c.Table.SmallBlind,
		BigBlind:       c.Table.BigBlind,
		StartingStack:  c.Table.StartingStack,
		ActionTimeout:  time.Duration(c.Table.ActionTimeoutSeconds) * time.Second,
		PayoutDisplay:  time.Duration(c.Table.PayoutDisplaySeconds) * time.Second,
		InterHandDelay: time.Duration(c.Table.InterHandDelaySeconds) * time.Second,
	}
}

// ReapInterval returns the configured empty-table sweep interval.
func (c *ServerConfig) ReapInterval() time.Duration {
	return time.Duration(c.Server.EmptyTableReapSeconds) * time.Second
}

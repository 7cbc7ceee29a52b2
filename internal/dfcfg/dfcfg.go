// Package dfcfg loads the daemon's YAML configuration document into the
// pre-validated ConnectionConfig values the core engine (internal/df1)
// takes as an opaque input. Validation is limited to range and enum
// checks on the fields the engine actually reads.
package dfcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jvalenzuela/df1d/internal/df1"
)

// ConnectionConfig is one configured connection: a serial line, its
// DF1 link parameters, and the TCP port its clients connect to.
type ConnectionConfig struct {
	Name         string `yaml:"name"`
	Device       string `yaml:"device"`
	Baud         int    `yaml:"baud"`
	Checksum     string `yaml:"checksum"`   // "crc" or "bcc"
	Duplex       string `yaml:"duplex"`     // "full", "master", or "slave"
	Port         int    `yaml:"port"`
	MaxNak       int    `yaml:"max_nak"`
	MaxEnq       int    `yaml:"max_enq"`
	DupDetect    bool   `yaml:"dup_detect"`
	AckTimeoutMS int    `yaml:"ack_timeout_ms"`
}

// Document is the top-level YAML shape: a flat list of connections.
type Document struct {
	Connections []ConnectionConfig `yaml:"connections"`
}

// Load reads and range-checks path, returning the validated connection
// list.
func Load(path string) ([]ConnectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dfcfg: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dfcfg: parse %s: %w", path, err)
	}
	if len(doc.Connections) == 0 {
		return nil, fmt.Errorf("dfcfg: %s declares no connections", path)
	}
	for i := range doc.Connections {
		if err := doc.Connections[i].validate(); err != nil {
			return nil, fmt.Errorf("dfcfg: connection %d: %w", i, err)
		}
	}
	return doc.Connections, nil
}

func (c *ConnectionConfig) validate() error {
	if c.Name == "" || len(c.Name) > df1.NameMax {
		return fmt.Errorf("name must be 1-%d bytes", df1.NameMax)
	}
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	if !df1.ValidBaud(c.Baud) {
		return fmt.Errorf("unsupported baud rate %d", c.Baud)
	}
	switch c.Checksum {
	case "crc", "bcc":
	default:
		return fmt.Errorf("checksum must be crc or bcc, got %q", c.Checksum)
	}
	switch c.Duplex {
	case "full", "master", "slave":
	default:
		return fmt.Errorf("duplex must be full, master, or slave, got %q", c.Duplex)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxNak < 0 || c.MaxNak > 255 {
		return fmt.Errorf("max_nak %d out of range", c.MaxNak)
	}
	if c.MaxEnq < 0 || c.MaxEnq > 255 {
		return fmt.Errorf("max_enq %d out of range", c.MaxEnq)
	}
	if c.AckTimeoutMS <= 0 {
		return fmt.Errorf("ack_timeout_ms must be positive")
	}
	return nil
}

// ToDF1 converts the validated YAML fields into the df1.Config the core
// engine consumes.
func (c ConnectionConfig) ToDF1() df1.Config {
	duplex := df1.DuplexFull
	switch c.Duplex {
	case "master":
		duplex = df1.DuplexMaster
	case "slave":
		duplex = df1.DuplexSlave
	}
	return df1.Config{
		Name:         c.Name,
		UseCRC:       c.Checksum == "crc",
		Duplex:       duplex,
		AckTimeoutMS: c.AckTimeoutMS,
		TxMaxNak:     c.MaxNak,
		TxMaxEnq:     c.MaxEnq,
		RxDupDetect:  c.DupDetect,
	}
}

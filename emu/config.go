package emu

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/e500sim/mmu"
)

// Config holds the reset state and geometry of an emulated core.
type Config struct {
	// MMU is the TLB and translation cache geometry.
	MMU mmu.Config `json:"mmu"`

	// Translation enables address translation for fetches and data
	// accesses. When false, effective addresses are used as real
	// addresses. Default: true.
	Translation bool `json:"translation"`

	// Mode64 sets MSR[CM] at reset. Default: false (32-bit mode).
	Mode64 bool `json:"mode64"`

	// SPE sets MSR[SPE] at reset. Default: true.
	SPE bool `json:"spe"`

	// UserMode sets MSR[PR] at reset. Default: false.
	UserMode bool `json:"user_mode"`

	// ResetPC is the initial instruction address when no program entry
	// is given. Default: 0xFFFFFFFC.
	ResetPC uint64 `json:"reset_pc"`

	// MaxInstructions stops Run after this many instructions.
	// Default: 0 (no limit).
	MaxInstructions uint64 `json:"max_instructions"`
}

// DefaultConfig returns an e500v2 core in supervisor mode with SPE enabled.
func DefaultConfig() *Config {
	return &Config{
		MMU:         mmu.DefaultConfig(),
		Translation: true,
		SPE:         true,
		ResetPC:     0xFFFFFFFC,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read emulator config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse emulator config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize emulator config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write emulator config file: %w", err)
	}

	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.MMU.Validate(); err != nil {
		return fmt.Errorf("mmu: %w", err)
	}
	if c.ResetPC&3 != 0 {
		return fmt.Errorf("reset_pc must be word aligned")
	}
	if !c.Mode64 && c.ResetPC > 0xFFFFFFFF {
		return fmt.Errorf("reset_pc must fit in 32 bits unless mode64 is set")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// resetMSR returns the MSR value the configuration selects.
func (c *Config) resetMSR() uint64 {
	msr := MSRME
	if c.Mode64 {
		msr |= MSRCM
	}
	if c.SPE {
		msr |= MSRSPE
	}
	if c.UserMode {
		msr |= MSRPR
	}
	return msr
}

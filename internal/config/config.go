package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// EngineView pins one engine's window explicitly instead of using a split
// plan. offset_bytes is a raw byte offset into the colors array.
type EngineView struct {
	OffsetBytes int  `yaml:"offset_bytes"`
	LEDs        int  `yaml:"leds"`
	IRQ         bool `yaml:"irq,omitempty"`
}

type Config struct {
	LEDs      int    `yaml:"leds"`       // string length
	StepShift uint   `yaml:"step_shift"` // wheel sector exponent (5 -> SMAX 192)
	Mode      string `yaml:"mode"`       // "poll" | "irq"
	Split     string `yaml:"split"`      // "aliased" | "disjoint"
	Engines   int    `yaml:"engines"`
	FPS       int    `yaml:"fps"`    // 0 free-runs
	Frames    int    `yaml:"frames"` // 0 runs until interrupted
	Driver    string `yaml:"driver"` // "sim" | "spi"
	SPIDev    string `yaml:"spi_dev,omitempty"`
	Addr      string `yaml:"addr"`

	// Views overrides the split plan when present.
	Views []EngineView `yaml:"views,omitempty"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

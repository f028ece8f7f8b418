package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"satleds/pkg/device/apa102"
)

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0
	SpeedHz int    `yaml:"speed_hz"` // e.g. 4000000
}

type Config struct {
	Listen     string `yaml:"listen"`
	Leds       int    `yaml:"leds"`
	Brightness int    `yaml:"brightness"`  // global 5-bit cap, 1-31
	ColorOrder string `yaml:"color_order"` // one of the six RGB permutations
	SPI        SPI    `yaml:"spi"`
	SoundsDir  string `yaml:"sounds_dir"`
	Player     string `yaml:"player"`
	Debug      bool   `yaml:"debug"`
}

// Default matches the 2-mic hat: three LEDs behind /dev/spidev0.0.
func Default() *Config {
	return &Config{
		Listen:     "0.0.0.0:10500",
		Leds:       3,
		Brightness: 31,
		ColorOrder: "BGR",
		SPI: SPI{
			Dev:     "/dev/spidev0.0",
			SpeedHz: 4000000,
		},
		Player: "aplay",
	}
}

// Load reads path over the defaults; an empty path keeps them as is.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Leds <= 0 {
		return errors.Errorf("invalid LED count: %d", c.Leds)
	}

	if _, err := apa102.ParseOrder(c.ColorOrder); err != nil {
		return err
	}

	if c.Brightness < 1 {
		c.Brightness = 1
	} else if c.Brightness > 31 {
		c.Brightness = 31
	}

	return nil
}

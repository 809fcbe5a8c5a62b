package config

import "sort"

// Presets are named variations on the default vehicle.
var Presets = map[string]func(*Config){
	"falcon9": func(c *Config) {},
	"heavy-payload": func(c *Config) {
		c.Vehicle.Payload.Mass = 22800
		c.Duration = 200
	},
	"light-payload": func(c *Config) {
		c.Vehicle.Payload.Mass = 4000
		c.Vehicle.Payload.Height = 8
	},
	"short-burn": func(c *Config) {
		c.Vehicle.Stage1.Fuel = 5000
		c.Vehicle.Stage2.Fuel = 1000
		c.Duration = 80
	},
	"full-ascent": func(c *Config) {
		c.Duration = 600
		c.SampleEvery = 10
	},
	"coarse": func(c *Config) {
		c.Stepper = "rk4"
		c.FixedStep = 0.1
		c.Vehicle.Dt = 0.5
	},
	"moon": func(c *Config) {
		c.Source.Mass = 7.342e22
		c.Source.Radius = 1737400
		c.Vehicle.TargetAltitude = 100000
		c.Duration = 60
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

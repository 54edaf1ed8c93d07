package config

import "github.com/spf13/viper"

type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Snap tolerances in meters: strict for file-driven placement, looser
	// for interactive clicks.
	SnapToleranceM        float64 `mapstructure:"SNAP_TOLERANCE_M"`
	InteractiveToleranceM float64 `mapstructure:"INTERACTIVE_TOLERANCE_M"`

	// A synthetic start/end waypoint is created when the nearest real
	// waypoint is farther than this from the track endpoint.
	EndpointGapM float64 `mapstructure:"ENDPOINT_GAP_M"`

	// Average track point spacing above which a load is refused unless
	// forced.
	DensityWarnKmPerPt float64 `mapstructure:"DENSITY_WARN_KM_PER_PT"`
}

func Load() Config {
	viper.AutomaticEnv()
	viper.SetDefault("SERVER_PORT", ":8080")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("SNAP_TOLERANCE_M", 15.0)
	viper.SetDefault("INTERACTIVE_TOLERANCE_M", 50.0)
	viper.SetDefault("ENDPOINT_GAP_M", 100.0)
	viper.SetDefault("DENSITY_WARN_KM_PER_PT", 0.015)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

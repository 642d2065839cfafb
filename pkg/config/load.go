package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional file and from environment
// variables (prefixed WORKFLOWENGINE_, e.g. WORKFLOWENGINE_MAXEXECUTIONTIME),
// layered on top of Default(). configPath may be empty, in which case only
// environment variables and Default()'s values apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	setDefaults(v, defaults)

	if configPath != "" {
		dir := filepath.Dir(configPath)
		file := filepath.Base(configPath)
		v.SetConfigName(strings.TrimSuffix(file, filepath.Ext(file)))
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("%w: %w", ErrConfigParseFailed, err)
			}
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	}

	v.SetEnvPrefix("WORKFLOWENGINE")
	v.AutomaticEnv()

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("maxexecutiontime", cfg.MaxExecutionTime)
	v.SetDefault("maxnodeexecutiontime", cfg.MaxNodeExecutionTime)
	v.SetDefault("maxiterations", cfg.MaxIterations)
	v.SetDefault("httptimeout", cfg.HTTPTimeout)
	v.SetDefault("maxhttpredirects", cfg.MaxHTTPRedirects)
	v.SetDefault("maxresponsesize", cfg.MaxResponseSize)
	v.SetDefault("maxhttpcallsperexec", cfg.MaxHTTPCallsPerExec)
	v.SetDefault("allowhttp", cfg.AllowHTTP)
	v.SetDefault("allowprivateips", cfg.AllowPrivateIPs)
	v.SetDefault("allowlocalhost", cfg.AllowLocalhost)
	v.SetDefault("allowlinklocal", cfg.AllowLinkLocal)
	v.SetDefault("allowcloudmetadata", cfg.AllowCloudMetadata)
	v.SetDefault("defaultcachettl", cfg.DefaultCacheTTL)
	v.SetDefault("maxcachesize", cfg.MaxCacheSize)
	v.SetDefault("maxnodes", cfg.MaxNodes)
	v.SetDefault("maxedges", cfg.MaxEdges)
	v.SetDefault("maxnodeexecutions", cfg.MaxNodeExecutions)
	v.SetDefault("defaultmaxattempts", cfg.DefaultMaxAttempts)
	v.SetDefault("defaultbackoff", cfg.DefaultBackoff)
	v.SetDefault("maxconcurrentnodes", cfg.MaxConcurrentNodes)
	v.SetDefault("skipcreditcheck", cfg.SkipCreditCheck)
	v.SetDefault("reservationmultiplier", cfg.ReservationMultiplier)
	v.SetDefault("graceoverdraftratio", cfg.GraceOverdraftRatio)
	v.SetDefault("defaultpausetimeout", cfg.DefaultPauseTimeout)
}

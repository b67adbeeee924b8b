// Package config provides configuration parsing for oodb.
//
// # Overview
//
// Configuration is read from a YAML file. Missing keys keep their defaults,
// unknown keys are rejected and ${VAR} or ${VAR:-default} patterns are
// replaced with environment variables before parsing.
//
//	cfg, err := config.LoadConfig("/etc/oodb/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    log.Fatal(errs[0])
//	}
//
//	opts, err := cfg.Storage.Options()
//	logger := cfg.Logging.NewLogger()
//
// # Example Configuration
//
//	storage:
//	  dataDir: /var/lib/oodb
//	  pageSize: 4096
//	  cacheSize: 64MiB
//	  checksums: true
//	  syncOnWrite: true
//	  reuseDelay: 1
//
//	logging:
//	  level: ${OODB_LOG_LEVEL:-info}
//	  format: json
//	  output: stderr
//
// Sizes accept SI and IEC suffixes: 8MB is 8,000,000 bytes, 8MiB is
// 8,388,608 bytes.
package config

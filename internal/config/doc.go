// Package config loads the configuration of the elements commands.
//
// Configuration comes from, in increasing precedence: built-in defaults,
// an elements.yaml (or .json/.toml) file in the working directory or the
// path given with --config, ELEMENTS_* environment variables, and
// command-line flags bound onto the same keys.
//
// # Configuration File Structure
//
//	sources:
//	  - ./components
//	  - s3://my-bucket/elements/
//	platform:
//	  tags: [dialog, details]
//	ledger:
//	  lossy: false
//	sheets:
//	  root: ./components
//	  cacheTTL: 10m
//	server:
//	  addr: ":8080"
//	  rateLimit: 20
//	  burst: 40
//	metrics:
//	  enabled: true
//	  namespace: elements
//	tracing:
//	  enabled: false
//	  exporter: stdout
//	watch:
//	  debounce: 200ms
//	log:
//	  level: info
//	  format: json
//
// # Usage
//
//	v := viper.New()
//	cfg, err := config.Load(v, "")
//	if err != nil {
//	    return err
//	}
//
// Environment overrides use the ELEMENTS_ prefix with dots replaced by
// underscores, for example ELEMENTS_SERVER_ADDR=:9090.
package config

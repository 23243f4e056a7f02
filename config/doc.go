// Package config loads declhttp client configuration.
//
// It uses Viper to read a YAML file and godotenv to load a .env file, then
// overlays environment variables. Variables are matched against nested keys
// by splitting on underscores, so DECLHTTP_TRANSPORT_TIMEOUT sets
// transport.timeout when the loader runs with the DECLHTTP prefix.
//
// # Usage
//
//	var cfg config.ClientConfig
//	if err := config.LoadConfig("search-client", &cfg, config.WithEnvPrefix("DECLHTTP")); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

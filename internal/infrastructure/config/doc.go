// Package config loads and validates the Toshiba bridge service
// configuration.
//
// Values come from defaults, then the YAML file, then GRAYLOGIC_*
// environment variables. Credentials (MQTT password, InfluxDB token)
// belong in the environment rather than the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// Per-unit settings live in a second file named by
// protocols.toshiba.config_file and are loaded by the bridge itself.
package config

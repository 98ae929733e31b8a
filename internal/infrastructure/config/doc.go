// Package config loads and validates the GripID tracker configuration.
//
// Values come from built-in defaults, then the YAML file, then GRIPID_*
// environment variables. Secrets (MQTT password, InfluxDB token, JWT
// secret) are expected to arrive through the environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Site.Name)
package config

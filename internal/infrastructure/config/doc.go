// Package config handles loading and validating the MQTT event publisher configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MQTTPUB_ prefix)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords should be set via MQTTPUB_MQTT_PASSWORD rather than the file
//   - The config file should have restricted permissions (0600)
//   - TLS key material is referenced by path and read once at startup
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Host)
package config

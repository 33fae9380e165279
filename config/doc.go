// Package config provides configuration loading and validation for taskflow.
//
// It uses Viper to load a YAML file and godotenv to load an optional .env
// file, then binds environment variables carrying the TASKFLOW_ prefix over
// the file values with underscore-separated paths (e.g.
// TASKFLOW_LOGGING_LEVEL sets logging.level).
//
// # Usage
//
//	var cfg config.Config
//	if err := config.Load(config.AppName, &cfg); err != nil {
//		return err
//	}
package config

// Package config loads the application configuration from environment
// variables and an optional .env file.
//
// Defaults are declared as struct tags on the partial config structs owned by
// each core package and bound into Viper by reflection, so every key is
// overridable through the environment (SYNC_SOT_HOST, DATABASE_HOST, ...).
package config

// Package config loads engine settings from defaults, an optional YAML file
// and EPR_* environment variables.
//
// Example file:
//
//	database:
//	  driver: sqlite
//	  dsn: file:edusight.db?_foreign_keys=on
//	epr:
//	  thriving: 88
//	jobs:
//	  max_execution_time: 15m
package config

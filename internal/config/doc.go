// Package config loads the prstack configuration: built-in defaults,
// overridden by ~/.prstack.yml, then <repo>/.prstack.yml, then PRSTACK_*
// environment variables, then command line flags.
package config

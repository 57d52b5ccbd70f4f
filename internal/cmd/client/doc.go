// Package client contains Cobra CLI commands for talking to a running
// vitals server over its HTTP API.
//
// The server address comes from the VITALS_HTTP environment variable or
// defaults to http://127.0.0.1:8080. A bearer token for authenticated
// commands comes from --token or VITALS_TOKEN.
//
// Example:
//
//	vitals patient create --id alice --label "Alice"
//	vitals reading send --patient alice --pressure 120 --temperature 23.5
//	vitals reading latest --token tok-alice --limit 10
//	vitals reading watch --patient alice --filter "pressure > 100"
package client

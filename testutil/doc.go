// Package testutil provides shared test helpers: a recording notifier that
// stands in for the gateway connection, and sample frames.
package testutil

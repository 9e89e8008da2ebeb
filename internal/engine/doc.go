// Package engine provides the polling engine controller. It reads the shared
// coordination document on a fixed interval, dispatches the task addressed to
// its own identity, and publishes the resulting engine record.
package engine

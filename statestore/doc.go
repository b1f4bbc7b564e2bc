// Package statestore tracks the runtime side of a plugin's entities: state
// values, setting values, and held-action flags. It caches the last value
// written for each key and suppresses wire writes that would repeat it, so
// handlers can update unconditionally on every tick without flooding the
// controller.
package statestore

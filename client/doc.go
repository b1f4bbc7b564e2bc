// Package client implements the plugin side of the host pairing protocol:
// a TCP connection carrying one JSON object per line. A Client dials the
// local host socket, announces itself with a pair message and then routes
// inbound messages to registered handlers while exposing the outbound
// operations (state, choice, setting, connector and notification updates).
//
// Handlers run on a bounded worker pool so the read loop is never blocked
// by plugin code. State and setting writes go through a cache that drops
// repeated identical values, and hold-style actions are tracked so handlers
// can poll IsActionBeingHeld while repeating their work.
package client

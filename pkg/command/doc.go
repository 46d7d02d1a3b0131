// Package command decodes the line-oriented remote control protocol.
package command

// The protocol is plain ASCII over a byte stream (e.g. serial port).
// Each line carries a single token and is terminated by '\n' or '\r'.
// A line longer than the decoder capacity is split at the capacity.
//
//	f  forward          b  back
//	l  turn left        r  turn right
//	s  stop             a  switch to autopilot
//
// Any recognized token other than "a" switches back to manual mode.
// Everything else decodes to Unknown and is ignored.

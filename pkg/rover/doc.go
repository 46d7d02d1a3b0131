// Package rover assembles the control core of a rover: links decode
// remote commands onto the command bus, the dispatcher applies them to
// the chassis, and the autopilot overrides them from ranger samples
// while in AutoPilot mode.
//
// Each part runs as a task until the context is done, and the chassis
// is stopped when all tasks have stopped.
package rover

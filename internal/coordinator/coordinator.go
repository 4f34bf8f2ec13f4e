// Package coordinator implements the shared-link arbitration (C7) between
// telemetry (C4) and the upload engine (C6): only one of them may hold the
// serial link's write path at a time. Modeled on the teacher's Deployer,
// which holds exclusive use of one deployed device and hands it back
// explicitly on failure, generalized from "one ASIC deployment" to "one
// link writer at a time".
package coordinator

import (
	"errors"
	"sync/atomic"
)

// ErrUploadInProgress is returned by SendCommand while an upload holds the
// link.
var ErrUploadInProgress = errors.New("coordinator: command rejected, upload in progress")

// Coordinator arbitrates link access for one Session. It implements
// telemetry.Gate directly: Paused() reports true whenever an upload holds
// the link or the link itself isn't ready for streaming yet.
type Coordinator struct {
	paused     atomic.Bool
	uploadMode atomic.Bool

	sendCommand func(line string) error
}

// New builds a Coordinator. sendCommand is the link's command passthrough
// (typically Session.SendCommand); it is serialized against upload writes
// by the caller already holding the link's own write lock, so Coordinator
// only needs to track mode, not re-implement mutual exclusion over bytes.
func New(sendCommand func(line string) error) *Coordinator {
	c := &Coordinator{sendCommand: sendCommand}
	c.paused.Store(true) // nothing is streaming until a session tells us otherwise
	return c
}

// Paused implements telemetry.Gate.
func (c *Coordinator) Paused() bool {
	return c.paused.Load() || c.uploadMode.Load()
}

// SetStreaming marks the link ready for telemetry transmission, called once
// the link manager reaches StateStreaming.
func (c *Coordinator) SetStreaming(streaming bool) {
	c.paused.Store(!streaming)
}

// BeginUpload marks an upload in progress, suppressing telemetry until
// EndUpload is called. Returns false if an upload is already in progress.
func (c *Coordinator) BeginUpload() bool {
	return c.uploadMode.CompareAndSwap(false, true)
}

// EndUpload clears upload mode, letting telemetry resume on the next tick.
func (c *Coordinator) EndUpload() {
	c.uploadMode.Store(false)
}

// UploadInProgress reports whether an upload currently holds the link.
func (c *Coordinator) UploadInProgress() bool {
	return c.uploadMode.Load()
}

// SendCommand passes a user command (e.g. SET_ROTATION) through to the
// link, rejecting it outright while an upload holds the link rather than
// queuing it - commands are advisory UI actions, not part of the upload
// protocol, and spec.md names no ordering guarantee between the two.
func (c *Coordinator) SendCommand(line string) error {
	if c.uploadMode.Load() {
		return ErrUploadInProgress
	}
	return c.sendCommand(line)
}

// Reset clears both flags on link loss, per spec.md §4.2's reconnect
// semantics: a fresh session starts paused until it reaches Streaming
// again, and any in-flight upload is implicitly abandoned by the dropped
// link.
func (c *Coordinator) Reset() {
	c.paused.Store(true)
	c.uploadMode.Store(false)
}

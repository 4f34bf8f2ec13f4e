// Package upload implements the chunked ACK/retry upload engine (C6) of
// spec.md §4.6: the IMG_BEGIN/IMG_DATA/IMG_END/IMG_ABORT wire protocol that
// ships one image artifact over the same serial link telemetry uses,
// retrying individual chunks the way the teacher's cgminer client retries
// individual USB transfers rather than restarting the whole transfer.
package upload

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dragoncraft87/scarab-host/internal/scarabio"
)

// Protocol parameters, fixed by spec.md §4.6.
const (
	ChunkSize        = 512
	ResponseTimeout  = 5000 * time.Millisecond
	MaxRetries       = 3
	InterChunkPacing = 5 * time.Millisecond
	PostRetryDelay   = 100 * time.Millisecond
)

// State is one node of the per-upload state machine of spec.md §4.6.
type State int

const (
	StateIdle State = iota
	StateExpectingBegin
	StateSending
	StateExpectingEnd
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateExpectingBegin:
		return "ExpectingBegin"
	case StateSending:
		return "Sending"
	case StateExpectingEnd:
		return "ExpectingEnd"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// Writer is the link's write path for one complete wire line (already
// newline-terminated is not required; Engine appends it).
type Writer interface {
	Write(data []byte) error
}

// Reader reads one line from the link, blocking until '\n'/'\r' or the
// given deadline, matching spec.md §4.6's response reader behavior.
type Reader interface {
	ReadLine(deadline time.Time) (string, error)
}

// Progress is broadcast on Engine's progress channel as bytes are
// acknowledged, so a UI can render a bar without polling the engine.
type Progress struct {
	Slot        int
	SentBytes   int
	TotalBytes  int
	ChunksSent  int
	TotalChunks int
	Percent     float64
	State       State
}

// Result is returned from Engine.Send once the upload reaches a terminal
// state (Done, Failed or Cancelled).
type Result struct {
	State State
	Err   error
}

// Engine drives one IMG_BEGIN/IMG_DATA*/IMG_END exchange over a Writer/
// Reader pair, per spec.md §4.6.
type Engine struct {
	w Writer
	r Reader

	// Progress, if non-nil, receives a Progress value when the upload
	// starts, after every acknowledged chunk, and at the terminal state.
	// Sends are non-blocking: a slow or absent consumer never stalls the
	// upload.
	Progress chan<- Progress
}

func NewEngine(w Writer, r Reader) *Engine {
	return &Engine{w: w, r: r}
}

// Send runs the full upload state machine for one artifact against slot,
// honoring cancel at chunk boundaries. It never leaves the device hanging
// mid-transfer: any failure path before returning sends IMG_ABORT
// best-effort, per spec.md §4.6 invariants.
func (e *Engine) Send(slot int, data []byte, crc32Hex string, cancel <-chan struct{}) Result {
	totalChunks := (len(data) + ChunkSize - 1) / ChunkSize

	state := StateExpectingBegin
	e.report(slot, 0, len(data), 0, totalChunks, state)

	if err := e.doBegin(slot, len(data)); err != nil {
		return e.abort(StateFailed, err)
	}

	state = StateSending
	offset := 0
	chunksSent := 0
	for offset < len(data) {
		select {
		case <-cancel:
			return e.abort(StateCancelled, scarabio.New(scarabio.KindCancelled, "upload cancelled"))
		default:
		}

		end := offset + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]

		if err := e.sendChunkWithRetry(offset, chunk, cancel); err != nil {
			if scarabio.Is(err, scarabio.KindCancelled) {
				return e.abort(StateCancelled, err)
			}
			return e.abort(StateFailed, err)
		}

		offset = end
		chunksSent++
		e.report(slot, offset, len(data), chunksSent, totalChunks, state)
		time.Sleep(InterChunkPacing)
	}

	state = StateExpectingEnd
	if err := e.doEnd(crc32Hex); err != nil {
		return e.abort(StateFailed, err)
	}

	e.report(slot, len(data), len(data), totalChunks, totalChunks, StateDone)
	return Result{State: StateDone}
}

func (e *Engine) doBegin(slot, totalBytes int) error {
	line := fmt.Sprintf("IMG_BEGIN:%d:%d", slot, totalBytes)
	return e.sendAndAwait(line, []string{"IMG_OK:BEGIN"}, scarabio.KindChunkRejected)
}

// doEnd rejects with CrcMismatch, not ChunkRejected: spec.md §7 gives
// IMG_END rejection its own kind because the policy differs (no retry; the
// upload must restart from IMG_BEGIN).
func (e *Engine) doEnd(crc32Hex string) error {
	line := "IMG_END:" + crc32Hex
	return e.sendAndAwait(line, []string{"IMG_OK:END", "IMG_OK:COMPLETE"}, scarabio.KindCrcMismatch)
}

// sendChunkWithRetry sends one IMG_DATA frame, retrying up to MaxRetries
// times with an identical frame on timeout or rejection, per spec.md §4.6
// "Retries re-send the identical frame; they never split or resize."
func (e *Engine) sendChunkWithRetry(offset int, chunk []byte, cancel <-chan struct{}) error {
	line := fmt.Sprintf("IMG_DATA:%d:%s", offset, strings.ToUpper(hex.EncodeToString(chunk)))

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		select {
		case <-cancel:
			return scarabio.New(scarabio.KindCancelled, "upload cancelled mid-chunk")
		default:
		}

		err := e.sendAndAwait(line, []string{"IMG_OK:DATA"}, scarabio.KindChunkRejected)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < MaxRetries {
			time.Sleep(PostRetryDelay)
		}
	}
	return scarabio.Wrap(scarabio.KindChunkTimeout, "chunk retries exhausted", lastErr)
}

// sendAndAwait writes line (newline-terminated) then reads lines until one
// matches any of wantPrefixes, an IMG_ERR line arrives (tagged rejectKind),
// or the deadline (computed from the moment the line is written) expires.
func (e *Engine) sendAndAwait(line string, wantPrefixes []string, rejectKind scarabio.Kind) error {
	if err := e.w.Write([]byte(line + "\n")); err != nil {
		return scarabio.Wrap(scarabio.KindWriteFailed, "upload write failed", err)
	}
	deadline := time.Now().Add(ResponseTimeout)

	for {
		resp, err := e.r.ReadLine(deadline)
		if err != nil {
			return scarabio.Wrap(scarabio.KindChunkTimeout, "no response before deadline", err)
		}
		if strings.HasPrefix(resp, "IMG_ERR") {
			return scarabio.New(rejectKind, "device rejected chunk: "+resp)
		}
		for _, want := range wantPrefixes {
			if strings.HasPrefix(resp, want) {
				return nil
			}
		}
		// Unrecognized line: ignore and keep reading until deadline.
	}
}

// abort sends IMG_ABORT best-effort (its own failure is not reported; the
// original err already explains the failure) and returns the terminal
// Result.
func (e *Engine) abort(state State, err error) Result {
	_ = e.w.Write([]byte("IMG_ABORT\n"))
	e.report(-1, 0, 0, 0, 0, state)
	return Result{State: state, Err: err}
}

func (e *Engine) report(slot, sent, total, chunksSent, totalChunks int, state State) {
	if e.Progress == nil {
		return
	}
	percent := 0.0
	if total > 0 {
		percent = float64(sent) / float64(total) * 100
	}
	select {
	case e.Progress <- Progress{
		Slot:        slot,
		SentBytes:   sent,
		TotalBytes:  total,
		ChunksSent:  chunksSent,
		TotalChunks: totalChunks,
		Percent:     percent,
		State:       state,
	}:
	default:
	}
}

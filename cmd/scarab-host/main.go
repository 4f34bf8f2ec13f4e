// Command scarab-host is the composition root: it wires the enumerator,
// link manager, telemetry sampler/framer, image transcoder, upload engine
// and coordinator into one running process, following the flag-var-block
// style of cmd/driver/hasher-host/main.go in the teacher repo.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atotto/clipboard"

	"github.com/dragoncraft87/scarab-host/internal/config"
	"github.com/dragoncraft87/scarab-host/internal/coordinator"
	"github.com/dragoncraft87/scarab-host/internal/imagexfer"
	"github.com/dragoncraft87/scarab-host/internal/serialport"
	"github.com/dragoncraft87/scarab-host/internal/telemetry"
	"github.com/dragoncraft87/scarab-host/internal/upload"
)

var (
	flagPort     = flag.String("port", "", "fixed serial port to use, skipping enumeration (overrides SCARAB_PORT)")
	flagHTTPAddr = flag.String("http-addr", "", "listen address for the debug status API, e.g. 127.0.0.1:8787 (overrides SCARAB_HTTP_ADDR)")
	flagTUI      = flag.Bool("tui", false, "run the live Bubble Tea status dashboard in the terminal")
	flagCopyHash = flag.Bool("copy-hash", false, "copy the local identity hash to the clipboard on startup")
	flagGPUName  = flag.String("gpu-name", "", "override the GPU name reported in the identity hash (no vendor GPU collaborator is wired in by default)")
	flagImage    = flag.String("image", "", "path to an image to transcode and upload once the link reaches Streaming")
	flagSlot     = flag.Int("slot", 0, "upload slot index for --image")
)

// uploadJob is one request to ship an artifact over whatever session is
// currently live; submitted by --image and answered on result.
type uploadJob struct {
	slot   int
	data   []byte
	crcHex string
	result chan upload.Result
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if *flagGPUName != "" {
		gpuNameOverride = *flagGPUName
	}

	fixedPort := *flagPort
	if fixedPort == "" {
		fixedPort = config.GetPort()
	}
	httpAddr := *flagHTTPAddr
	if httpAddr == "" {
		httpAddr = config.GetHTTPAddr()
	}

	id := localIdentity()
	log.Printf("[identity] cpu=%q gpu=%q hash=%s", id.CPUName, id.GPUName, id.IdentityHash)

	if *flagCopyHash {
		if err := clipboard.WriteAll(id.IdentityHash); err != nil {
			log.Printf("[identity] clipboard copy failed: %v", err)
		} else {
			log.Printf("[identity] hash %s copied to clipboard", id.IdentityHash)
		}
	}

	sampler := telemetry.NewSampler(nil, nil)
	linkManager := serialport.NewLinkManager(id, fixedPort)

	var currentSession atomic.Pointer[serialport.Session]
	coord := coordinator.New(func(line string) error {
		sess := currentSession.Load()
		if sess == nil {
			return fmt.Errorf("no active session")
		}
		return sess.SendCommand(line)
	})

	progressCh := make(chan upload.Progress, 8)
	uploadRequests := make(chan uploadJob, 1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if httpAddr != "" {
		go newDebugServer(coord, sampler).run(ctx, httpAddr)
	}

	if *flagImage != "" {
		go submitImageUpload(*flagImage, *flagSlot, uploadRequests)
	}

	cancel := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(cancel)
	}()

	onSession := func(sess *serialport.Session) {
		runSession(sess, &currentSession, coord, sampler, progressCh, uploadRequests, cancel)
	}

	if *flagTUI {
		go linkManager.Run(cancel, onSession)
		m := newModel(coord, sampler, func() *serialport.Session { return currentSession.Load() }, progressCh)
		if _, err := tea.NewProgram(m).Run(); err != nil {
			log.Fatalf("tui error: %v", err)
		}
		return
	}

	linkManager.Run(cancel, onSession)
	log.Println("scarab-host stopped")
}

// runSession owns one live link session: it streams telemetry and services
// upload requests until the session ends, then hands control back to
// LinkManager.Run for reconnection.
func runSession(
	sess *serialport.Session,
	currentSession *atomic.Pointer[serialport.Session],
	coord *coordinator.Coordinator,
	sampler *telemetry.Sampler,
	progressCh chan upload.Progress,
	uploadRequests <-chan uploadJob,
	topCancel <-chan struct{},
) {
	log.Printf("[link] connected on %s", sess.PortName)
	currentSession.Store(sess)
	defer currentSession.Store(nil)

	coord.Reset()
	coord.SetStreaming(true)

	framer := telemetry.NewFramer(sampler, sess, coord)
	framerCancel := make(chan struct{})
	framerDone := make(chan error, 1)
	go func() { framerDone <- framer.Run(framerCancel) }()

	engine := upload.NewEngine(sess, sess)
	engine.Progress = progressCh

	for {
		select {
		case <-topCancel:
			close(framerCancel)
			<-framerDone
			return
		case err := <-framerDone:
			if err != nil {
				log.Printf("[telemetry] link write failed: %v", err)
			}
			return
		case job := <-uploadRequests:
			if !coord.BeginUpload() {
				job.result <- upload.Result{State: upload.StateFailed, Err: fmt.Errorf("upload already in progress")}
				continue
			}
			log.Printf("[upload] starting slot %d (%d bytes)", job.slot, len(job.data))
			res := engine.Send(job.slot, job.data, job.crcHex, topCancel)
			coord.EndUpload()
			log.Printf("[upload] slot %d finished: %s", job.slot, res.State)
			job.result <- res
		}
	}
}

// submitImageUpload decodes and transcodes path, then hands the artifact
// to whatever session comes up next via uploadRequests. It blocks until a
// session accepts the job, so it is meant to be run in its own goroutine.
func submitImageUpload(path string, slot int, uploadRequests chan<- uploadJob) {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("[image] open %s: %v", path, err)
		return
	}
	defer f.Close()

	img, err := imagexfer.Decode(f)
	if err != nil {
		log.Printf("[image] decode %s: %v", path, err)
		return
	}
	art, err := imagexfer.Transcode(img)
	if err != nil {
		log.Printf("[image] transcode %s: %v", path, err)
		return
	}

	job := uploadJob{slot: slot, data: art.Bytes, crcHex: art.CRCHex(), result: make(chan upload.Result, 1)}
	uploadRequests <- job
	res := <-job.result
	if res.Err != nil {
		log.Printf("[image] upload failed: %v", res.Err)
		return
	}
	log.Printf("[image] upload %s", res.State)
}

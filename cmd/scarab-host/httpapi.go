package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dragoncraft87/scarab-host/internal/coordinator"
	"github.com/dragoncraft87/scarab-host/internal/telemetry"
)

// debugServer is the optional localhost status/debug surface of spec.md
// SPEC_FULL's supplemental features, mirroring the teacher's
// runAPIServer: gin.New() + gin.Recovery(), a graceful Shutdown on
// context cancellation.
type debugServer struct {
	coord   *coordinator.Coordinator
	sampler *telemetry.Sampler
}

func newDebugServer(coord *coordinator.Coordinator, sampler *telemetry.Sampler) *debugServer {
	return &debugServer{coord: coord, sampler: sampler}
}

func (d *debugServer) run(ctx context.Context, addr string) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/status", d.handleStatus)
	router.GET("/telemetry", d.handleTelemetry)

	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("[http] debug API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[http] server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http] shutdown error: %v", err)
	}
}

func (d *debugServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"paused":             d.coord.Paused(),
		"upload_in_progress": d.coord.UploadInProgress(),
	})
}

func (d *debugServer) handleTelemetry(c *gin.Context) {
	snap := d.sampler.Sample()
	c.JSON(http.StatusOK, gin.H{
		"cpu_load":          snap.CPULoad,
		"cpu_temp_c":        snap.CPUTemp,
		"gpu_load":          snap.GPULoad,
		"gpu_temp_c":        snap.GPUTemp,
		"gpu_vram_used_gb":  snap.GPUVRAMUsedGB,
		"gpu_vram_total_gb": snap.GPUVRAMTotalGB,
		"ram_used_gb":       snap.RAMUsedGB,
		"ram_total_gb":      snap.RAMTotalGB,
		"net_kind":          snap.NetKind,
		"net_link_mbps":     snap.NetLinkMbps,
		"net_down_mbps":     snap.NetDownMbps,
		"net_up_mbps":       snap.NetUpMbps,
		"line":              telemetry.FormatLine(snap),
	})
}

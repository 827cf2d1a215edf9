package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/visionkit/go-headtrack/internal/config"
	"github.com/visionkit/go-headtrack/internal/log"
	"github.com/visionkit/go-headtrack/pkg/capture"
)

func main() {
	cameraID := flag.Int("camera", config.CameraID(), "Camera device ID")
	preset := flag.String("preset", "default", "Camera preset (default, 720p)")
	probes := flag.Int("probes", 30, "Number of brightness probes")
	interval := flag.Duration("interval", 100*time.Millisecond, "Delay between probes")
	snapshot := flag.String("snapshot", "", "Write one JPEG frame to this path")
	flag.Parse()

	log.Init(config.LogLevel())

	presetCfg := capture.GetPreset(*preset)
	if presetCfg == nil {
		fmt.Fprintf(os.Stderr, "unknown preset %q\n", *preset)
		os.Exit(2)
	}

	dev, err := capture.Open(*cameraID, *presetCfg)
	if err != nil {
		log.Error("Failed to open camera", "id", *cameraID, "error", err)
		os.Exit(1)
	}
	defer dev.Close()

	w, h := dev.Bounds()
	fmt.Printf("camera %d: %dx%d\n", *cameraID, w, h)

	stats := capture.NewWarmupStats(*probes)
	for i := 0; i < *probes; i++ {
		stats.Observe(dev.ProbeSignal())
		time.Sleep(*interval)
	}

	fmt.Printf("probes:     %d\n", stats.Count())
	fmt.Printf("brightness: mean=%.1f stddev=%.1f\n", stats.Mean(), stats.StdDev())
	if stats.Live() {
		fmt.Println("signal:     live")
	} else {
		fmt.Println("signal:     dead (no frames or constant black)")
		os.Exit(1)
	}

	if *snapshot != "" {
		frame, err := dev.CaptureJPEG()
		if err != nil {
			log.Error("Snapshot failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*snapshot, frame, 0o644); err != nil {
			log.Error("Snapshot write failed", "path", *snapshot, "error", err)
			os.Exit(1)
		}
		fmt.Println("snapshot:  ", *snapshot)
	}
}

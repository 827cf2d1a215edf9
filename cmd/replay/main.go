package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/visionkit/go-headtrack/internal/log"
	"github.com/visionkit/go-headtrack/pkg/headtrack"
	"github.com/visionkit/go-headtrack/pkg/journal"
)

// scriptEntry is one recorded tracker result.
type scriptEntry struct {
	Mode       string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Angle      float64 `json:"angle"`
}

func parseMode(name string) (headtrack.Mode, error) {
	switch name {
	case "whitebalance":
		return headtrack.ModeWhitebalance, nil
	case "coarse":
		return headtrack.ModeCoarse, nil
	case "fine":
		return headtrack.ModeFine, nil
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}

func loadScript(path string) ([]headtrack.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []scriptEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	results := make([]headtrack.Result, 0, len(entries))
	for i, e := range entries {
		mode, err := parseMode(e.Mode)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		results = append(results, headtrack.Result{
			Mode:       mode,
			Confidence: e.Confidence,
			X:          e.X,
			Y:          e.Y,
			Width:      e.Width,
			Height:     e.Height,
			Angle:      e.Angle,
		})
	}
	return results, nil
}

func main() {
	script := flag.String("script", "", "JSON file of recorded tracker results")
	poll := flag.Duration("poll", 5*time.Millisecond, "Replay step interval")
	journalPath := flag.String("journal", "", "SQLite journal path (empty = disabled)")
	noRetry := flag.Bool("no-retry", false, "Stop instead of redetecting when the lock is lost")
	flag.Parse()

	log.Init("info")

	if *script == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -script results.json")
		os.Exit(2)
	}
	results, err := loadScript(*script)
	if err != nil {
		log.Error("Failed to load script", "path", *script, "error", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		log.Error("Script is empty", "path", *script)
		os.Exit(1)
	}

	sinks := []headtrack.StatusSink{headtrack.SinkFunc(func(st headtrack.Status) {
		fmt.Printf("%s  %s\n", time.Now().Format("15:04:05.000"), st)
	})}
	if *journalPath != "" {
		db, err := journal.Open(*journalPath)
		if err != nil {
			log.Error("Failed to open journal", "path", *journalPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		recorder, err := db.NewRecorder()
		if err != nil {
			log.Error("Failed to start journal session", "error", err)
			os.Exit(1)
		}
		defer recorder.Close()
		fmt.Println("journal session:", recorder.SessionID())
		sinks = append(sinks, recorder)
	}

	cfg := headtrack.DefaultConfig()
	cfg.PollInterval = *poll
	cfg.RetryOnLoss = !*noRetry
	cfg.Sink = headtrack.MultiSink(sinks...)
	cfg.Spawn = func(src headtrack.FrameSource, opts headtrack.TrackerOptions) (headtrack.FaceTracker, error) {
		return &headtrack.ScriptedTracker{Opts: opts, Results: results}, nil
	}

	session := headtrack.New(cfg)
	if err := session.Init(headtrack.NewMockSource(640, 480)); err != nil {
		log.Error("Session init failed", "error", err)
		os.Exit(1)
	}
	session.Start()

	// The script's last result repeats forever, so cut the replay off
	// once every entry has had a chance to play.
	budget := time.Duration(len(results)+10) * *poll
	select {
	case <-time.After(budget):
		session.Stop()
	case <-waitDone(session):
	}
	session.Wait()

	if fov, ok := session.FOV(); ok {
		fmt.Printf("calibrated fov: %.4f rad\n", fov)
	}
	fmt.Println("final status:", session.Status())
}

func waitDone(s *headtrack.Session) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	return done
}

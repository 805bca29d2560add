package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/MotionFlow/pkg/motionflow"
)

func main() {
	cfg := motionflow.DefaultConfig()
	cfg.Archive.Disabled = true

	flow, err := motionflow.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []motionflow.Reading) error {
		for _, r := range batch {
			fmt.Printf("%s device=%s sensor=%s msg=%d values=%v\n",
				r.Time.Time().Format(time.RFC3339Nano),
				r.DeviceID,
				r.Sensor,
				r.MessageID,
				r.Values,
			)
		}
		return nil
	}

	// print the newest timeline sample once per second
	var last time.Time
	snapshot := func(f motionflow.Frame) {
		if f.TakenAt.Sub(last) < time.Second {
			return
		}
		last = f.TakenAt
		if tl := f.Channels["time"]; len(tl) > 0 {
			fmt.Printf("frame %d: %d samples, newest t=%.3fs\n", f.Seq, len(tl), tl[len(tl)-1])
		}
	}

	if err := flow.Run(ctx,
		motionflow.StreamOutCallback("stdout", callback),
		motionflow.StreamOutSnapshot(snapshot),
	); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

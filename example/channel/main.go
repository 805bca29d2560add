package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/MotionFlow"
)

func main() {
	flow, err := motionflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := motionflow.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	if err := flow.Run(ctx, motionflow.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

// fanoutWorker keeps receiving after ctx ends so the shutdown flush can drain.
func fanoutWorker(name string, batches <-chan []motionflow.Reading) {
	for batch := range batches {
		sensors := map[string]int{}
		for _, r := range batch {
			sensors[r.Sensor]++
		}
		fmt.Printf("[%s] %s forwarding %d readings %v\n", name, time.Now().Format(time.RFC3339), len(batch), sensors)
	}
}

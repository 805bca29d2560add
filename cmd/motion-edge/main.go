package main

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/ghalamif/MotionFlow"
)

//go:embed assets/banner_color.ansi
var bannerColor string

//go:embed assets/banner_plain.txt
var bannerPlain string

func main() {
	fmt.Print(selectBanner())
	fmt.Println()
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		log.Fatalf("motion-edge %s: %v", cmd, err)
	}
}

// configFlags are shared by run and validate so both see the same effective
// configuration.
type configFlags struct {
	path         string
	capacity     int
	pollInterval int
	addr         string
}

func (c *configFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.path, "config", "c", "", "Path to YAML configuration (defaults only when empty)")
	fs.IntVar(&c.capacity, "capacity", 0, "Samples retained per channel")
	fs.IntVar(&c.pollInterval, "poll-interval-ms", 0, "Snapshot poll period in milliseconds")
	fs.StringVar(&c.addr, "addr", "", "Ingest and query API listen address")
}

func (c *configFlags) load(fs *pflag.FlagSet) (*motionflow.Config, error) {
	cfg, err := motionflow.LoadConfig(c.path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if fs.Changed("capacity") {
		cfg.Buffer.Capacity = c.capacity
	}
	if fs.Changed("poll-interval-ms") {
		cfg.Poll.IntervalMs = c.pollInterval
	}
	if fs.Changed("addr") {
		cfg.HTTP.Addr = c.addr
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	var flags configFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := flags.load(fs)
	if err != nil {
		return err
	}
	flow, err := motionflow.ConfFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func validateCommand(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	var flags configFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := flags.load(fs)
	if err != nil {
		return err
	}
	persistence := cfg.Sink.Driver
	if persistence == "" {
		persistence = "off"
	}
	fmt.Printf("config %q looks good: capacity=%s poll=%s http=%s persistence=%s\n",
		flags.path,
		humanize.Comma(int64(cfg.Buffer.Capacity)),
		cfg.Poll.Interval(),
		cfg.HTTP.Addr,
		persistence,
	)
	return nil
}

func selectBanner() string {
	if os.Getenv("NO_COLOR") != "" {
		return bannerPlain
	}
	return bannerColor
}

func statsCommand(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsTargets = []string{
	"motion_ingest_requests_total",
	"motion_events_applied_total",
	"motion_spool_dropped_total",
	"motion_readings_persisted_total",
	"motion_queue_length",
	"motion_wal_size_bytes",
	"motion_timeline_length",
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeMetrics(bufio.NewScanner(resp.Body), statsTargets)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] requests=%s events=%s spool_dropped=%s persisted=%s queue=%s wal=%s timeline=%s\n",
		time.Now().Format(time.RFC3339),
		humanize.Comma(int64(values["motion_ingest_requests_total"])),
		humanize.Comma(int64(values["motion_events_applied_total"])),
		humanize.Comma(int64(values["motion_spool_dropped_total"])),
		humanize.Comma(int64(values["motion_readings_persisted_total"])),
		humanize.Comma(int64(values["motion_queue_length"])),
		humanize.Bytes(uint64(values["motion_wal_size_bytes"])),
		humanize.Comma(int64(values["motion_timeline_length"])),
	)
	return nil
}

// scrapeMetrics picks unlabelled samples for names out of the Prometheus
// text format.
func scrapeMetrics(scanner *bufio.Scanner, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range names {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					out[key] = value
				}
			}
		}
	}
	return out, scanner.Err()
}

func printUsage() {
	fmt.Printf(`MotionFlow CLI

Usage:
  motion-edge <command> [flags]

Commands:
  run        Start the telemetry runtime using the provided config
  validate   Load and validate a config file without starting the runtime
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  motion-edge run --config ./data/config.yaml --capacity 2000
  motion-edge validate --config ./data/config.yaml
  motion-edge stats --url http://localhost:9100/metrics --interval 1s
`)
}

package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestScrapeMetrics(t *testing.T) {
	body := `# HELP motion_queue_length Readings waiting for the sink.
# TYPE motion_queue_length gauge
motion_queue_length 12
motion_wal_size_bytes 2.5e+06
motion_ingest_requests_total 1234
motion_ingest_requests_total_extra 9
`
	got, err := scrapeMetrics(bufio.NewScanner(strings.NewReader(body)), statsTargets)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if got["motion_queue_length"] != 12 || got["motion_wal_size_bytes"] != 2.5e6 || got["motion_ingest_requests_total"] != 1234 {
		t.Fatalf("unexpected values %v", got)
	}
	if _, ok := got["motion_timeline_length"]; ok {
		t.Fatalf("absent metric should not be reported")
	}
}

func TestConfigFlagsOverrideDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	var flags configFlags
	flags.register(fs)
	if err := fs.Parse([]string{"--capacity", "42", "--poll-interval-ms=250", "--addr", ":9999"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := flags.load(fs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Buffer.Capacity != 42 || cfg.Poll.IntervalMs != 250 || cfg.HTTP.Addr != ":9999" {
		t.Fatalf("flags not applied: %+v %+v %+v", cfg.Buffer, cfg.Poll, cfg.HTTP)
	}
}

func TestConfigFlagsRejectInvalid(t *testing.T) {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	var flags configFlags
	flags.register(fs)
	if err := fs.Parse([]string{"--capacity", "-1"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := flags.load(fs); err == nil {
		t.Fatalf("expected negative capacity to be rejected")
	}
}

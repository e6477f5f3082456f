// ABOUTME: Entry point for the audiostream bridge server
// ABOUTME: Parses CLI flags and serves the websocket bridge on a local output
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiostream-go/audiostream/internal/config"
	"github.com/audiostream-go/audiostream/internal/bridge"
	"github.com/audiostream-go/audiostream/internal/version"
	"github.com/audiostream-go/audiostream/pkg/audio/convert"
	"github.com/audiostream-go/audiostream/pkg/audio/output"
	"github.com/audiostream-go/audiostream/pkg/audiostream"
)

var (
	port           = flag.Int("port", 8928, "WebSocket server port")
	name           = flag.String("name", "", "Bridge friendly name (default: hostname-audiostream)")
	backend        = flag.String("output", "oto", "Output backend: oto, malgo, pulse or null")
	deviceRate     = flag.Int("device-rate", 0, "Device sample rate (default: stream rate)")
	deviceChannels = flag.Int("device-channels", 0, "Device channel count (default: stream channels)")
	latencyMs      = flag.Int("latency-ms", 50, "Device latency in milliseconds")
	maxBufferSec   = flag.Int("max-buffer-seconds", 10, "Upper bound of a session's ring buffer")
	overflow       = flag.String("overflow", "block", "Full buffer behaviour: block or drop")
	closePolicy    = flag.String("close", "drain", "Buffered audio on close: drain or discard")
	downmix        = flag.String("downmix", "average", "Stereo to mono downmix: average or legacy-rate-doubling")
	writeTimeout   = flag.Duration("write-timeout", 2*time.Second, "How long a write waits for buffer space")
	logFile        = flag.String("log-file", "audiostream-server.log", "Log file path")
	debug          = flag.Bool("debug", false, "Enable debug logging")
	noMDNS         = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	useTUI         = flag.Bool("tui", false, "Show a live status view instead of streaming logs")
	showVersion    = flag.Bool("version", false, "Print version and exit")
	envFile        = flag.String("env-file", ".env", "File of AUDIOSTREAM_* flag overrides")
)

func main() {
	flag.Parse()
	if err := config.ApplyEnv(flag.CommandLine, "AUDIOSTREAM", *envFile); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if *useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	engineConfig, err := buildEngineConfig()
	if err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-audiostream", hostname)
	}

	log.Printf("Starting %s: %s on port %d", version.String(), serverName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	srv := bridge.New(bridge.Config{
		Port:       *port,
		Name:       serverName,
		EnableMDNS: !*noMDNS,
		Debug:      *debug,
		UseTUI:     *useTUI,
		Backend:    *backend,
		Output: output.Config{
			SampleRate: *deviceRate,
			Channels:   *deviceChannels,
			LatencyMs:  *latencyMs,
		},
		Engine: engineConfig,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}

// buildEngineConfig turns the policy flags into an engine configuration
func buildEngineConfig() (audiostream.Config, error) {
	var cfg audiostream.Config

	if _, err := output.New(*backend, output.Config{}); err != nil {
		return cfg, err
	}

	var err error
	if cfg.Overflow, err = audiostream.ParseOverflowPolicy(*overflow); err != nil {
		return cfg, err
	}
	if cfg.Close, err = audiostream.ParseClosePolicy(*closePolicy); err != nil {
		return cfg, err
	}
	if cfg.ChannelPolicy, err = convert.ParsePolicy(*downmix); err != nil {
		return cfg, err
	}
	cfg.MaxBufferSeconds = *maxBufferSec
	cfg.WriteTimeout = *writeTimeout
	return cfg, nil
}

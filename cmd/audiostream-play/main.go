// ABOUTME: Entry point for the audiostream file player
// ABOUTME: Streams a local file in irregular chunks to an in-process engine or a remote bridge
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiostream-go/audiostream/internal/config"
	"github.com/audiostream-go/audiostream/internal/discovery"
	"github.com/audiostream-go/audiostream/internal/ui"
	"github.com/audiostream-go/audiostream/internal/version"
	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/audiostream-go/audiostream/pkg/audio/convert"
	"github.com/audiostream-go/audiostream/pkg/audio/decode"
	"github.com/audiostream-go/audiostream/pkg/audio/output"
	"github.com/audiostream-go/audiostream/pkg/audiostream"
)

var (
	serverAddr  = flag.String("server", "", "Send to a remote bridge at host:port instead of playing locally")
	discover    = flag.Bool("discover", false, "Find a bridge via mDNS")
	backend     = flag.String("output", "oto", "Local output backend: oto, malgo, pulse or null")
	rawRate     = flag.Int("rate", 44100, "Sample rate of raw .pcm/.raw input")
	rawChannels = flag.Int("channels", 2, "Channel count of raw .pcm/.raw input")
	bufferBytes = flag.Int("buffer-bytes", 0, "Requested ring buffer size (default: device minimum)")
	deviceRate  = flag.Int("device-rate", 0, "Local device sample rate (default: stream rate)")
	downmix     = flag.String("downmix", "average", "Stereo to mono downmix: average or legacy-rate-doubling")
	chunkMin    = flag.Int("chunk-min", 64, "Smallest chunk in bytes")
	chunkMax    = flag.Int("chunk-max", 4096, "Largest chunk in bytes")
	seed        = flag.Uint64("seed", 1, "Seed for chunk sizes")
	realtime    = flag.Bool("realtime", true, "Pace writes at the stream's rate")
	leadMs      = flag.Int("lead-ms", 200, "How far ahead of real time writes may run")
	logFile     = flag.String("log-file", "audiostream-play.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	tone        = flag.Float64("tone", 0, "Play a sine tone at this frequency (Hz) instead of a file")
	toneSeconds = flag.Float64("tone-seconds", 5, "Tone length in seconds, 0 plays until interrupted")
	envFile     = flag.String("env-file", ".env", "File of AUDIOSTREAM_* flag overrides")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file.mp3|file.flac|file.wav|file.pcm> | -tone <hz>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if err := config.ApplyEnv(flag.CommandLine, "AUDIOSTREAM", *envFile); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	if (*tone > 0) == (flag.NArg() == 1) {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)
	if *tone > 0 {
		path = fmt.Sprintf("tone %.0fHz", *tone)
	}

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s player", version.String())

	src, err := openSource(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer src.Close()

	label := path
	if *tone == 0 {
		if tags, err := decode.ReadTags(path); err == nil {
			label = tags.String()
		}
	}
	log.Printf("Source: %s (%v)", label, src.Format())

	address := *serverAddr
	if address == "" && *discover {
		address, err = discoverBridge(10 * time.Second)
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
	}

	var t target
	if address != "" {
		t, err = newRemoteTarget(address)
	} else {
		t, err = newLocalTarget()
	}
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}

	if err := t.Initialize(src.Format(), *bufferBytes); err != nil {
		log.Fatalf("Initialize failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received %v signal, stopping", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var tui *ui.TUI
	if useTUI {
		tui = ui.NewTUI("audiostream-play")
		go func() {
			if err := tui.Start(); err != nil {
				log.Printf("TUI error: %v", err)
			}
			cancel()
		}()
		go func() {
			select {
			case <-tui.QuitChan():
				cancel()
			case <-ctx.Done():
			}
		}()
		go statusLoop(ctx, tui, t, label, address)
	}

	if err := stream(ctx, src, t); err != nil {
		log.Printf("Streaming stopped: %v", err)
	}

	if ctx.Err() == nil {
		flushCtx, flushCancel := context.WithTimeout(ctx, 30*time.Second)
		if err := t.Flush(flushCtx); err != nil {
			log.Printf("Flush failed: %v", err)
		}
		flushCancel()
	}

	if err := t.Close(); err != nil {
		log.Printf("Close failed: %v", err)
	}

	if tui != nil {
		tui.Stop()
	}

	log.Printf("Finished: %s", formatStats(t.Stats().Stats))
}

// openSource opens the input file, or a tone generator when -tone is set
func openSource(path string) (decode.Source, error) {
	format := audio.NewFormat(*rawRate, *rawChannels)
	if *tone > 0 {
		length := time.Duration(*toneSeconds * float64(time.Second))
		return decode.NewTone(format, *tone, length), nil
	}
	return decode.OpenFile(path, format)
}

// stream feeds the source to the target in irregular chunks
func stream(ctx context.Context, src decode.Source, t target) error {
	chunks := decode.NewChunker(src, *chunkMin, *chunkMax, *seed)
	bytesPerSecond := src.Format().BytesPerSecond()
	lead := time.Duration(*leadMs) * time.Millisecond

	start := time.Now()
	var sent int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := chunks.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		if err := t.Write(chunk); err != nil {
			log.Printf("Write failed: %v", err)
			if audiostream.KindOf(err) == audiostream.KindNotInitialized {
				return err
			}
		}
		sent += int64(len(chunk))

		if *realtime {
			due := start.Add(time.Duration(sent) * time.Second / time.Duration(bytesPerSecond))
			if wait := time.Until(due) - lead; wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// discoverBridge browses for the first advertised bridge
func discoverBridge(timeout time.Duration) (string, error) {
	log.Printf("Starting bridge discovery...")
	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		return "", err
	}

	select {
	case server := <-disc.Servers():
		log.Printf("Discovered bridge %s at %s", server.Name, server.Addr())
		return server.Addr(), nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no bridge found after %v", timeout)
	}
}

// statusLoop pushes target stats to the TUI
func statusLoop(ctx context.Context, tui *ui.TUI, t target, source, address string) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	dest := *backend
	if address != "" {
		dest = "bridge " + address
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tui.Update(ui.StatusMsg{
				Name:     "audiostream-play",
				Output:   dest,
				Source:   source,
				Sessions: []ui.SessionStatus{t.Stats()},
			})
		}
	}
}

func formatStats(st audiostream.Stats) string {
	return fmt.Sprintf("received=%d played=%d dropped=%d submit_failures=%d underruns=%d",
		st.Received, st.Played, st.Dropped, st.SubmitFailures, st.Underruns)
}

func channelPolicy() convert.ChannelPolicy {
	policy, err := convert.ParsePolicy(*downmix)
	if err != nil {
		log.Fatalf("Invalid -downmix: %v", err)
	}
	return policy
}

func outputConfig() output.Config {
	return output.Config{SampleRate: *deviceRate}
}

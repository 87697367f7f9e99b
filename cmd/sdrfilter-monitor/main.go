// Command sdrfilter-monitor drives a filter.Filter, built from a synthetic
// low-pass tap set (or, with -taps, from a file of interleaved re/im Q.15
// taps), over a synthetic complex-exponential I/Q stream and exposes its
// running statistics over a websocket endpoint and an optional terminal
// dashboard.
//
// Usage:
//
//	sdrfilter-monitor [options]
//
// Options:
//
//	-taps         Path to a Q.15 tap pair (re,im binary int16, little-endian)
//	-n            Synthetic low-pass tap count when -taps is not given
//	-decimation   Decimation factor
//	-rotate-hz    Derotation frequency shift in Hz (0 disables derotation)
//	-sample-rate  Sample rate in Hz
//	-no-tui       Disable the interactive terminal dashboard
//	-port         Telemetry websocket server port
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sdrfir/filter"
	"sdrfir/samplebuf"
	"sdrfir/telemetry"
)

func main() {
	tapsFile := flag.String("taps", "", "Path to Q.15 tap file (interleaved re,im int16, little-endian)")
	tapCount := flag.Int("n", 32, "Synthetic low-pass tap count when -taps is not given")
	decimation := flag.Int("decimation", 4, "Decimation factor")
	rotateHz := flag.Int("rotate-hz", 0, "Derotation frequency shift in Hz (0 disables derotation)")
	sampleRate := flag.Uint64("sample-rate", 1_000_000, "Sample rate in Hz")
	noTUI := flag.Bool("no-tui", false, "Disable the interactive terminal dashboard")
	port := flag.Int("port", 8090, "Telemetry websocket server port")

	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*tapsFile, *tapCount, *decimation, *rotateHz, uint32(*sampleRate), *noTUI, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(tapsFile string, tapCount, decimation, rotateHz int, sampleRate uint32, noTUI bool, port int) error {
	coeffsRe, coeffsIm, err := loadOrSynthesizeTaps(tapsFile, tapCount)
	if err != nil {
		return fmt.Errorf("loading taps: %w", err)
	}

	f, err := filter.New(filter.Config{
		CoeffsRe:     coeffsRe,
		CoeffsIm:     coeffsIm,
		Decimation:   decimation,
		Derotate:     rotateHz != 0,
		SampleRateHz: sampleRate,
		FreqShiftHz:  int32(rotateHz),
	})
	if err != nil {
		return fmt.Errorf("creating filter: %w", err)
	}
	defer f.Close()

	hub := telemetry.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx.Done())

	srv := telemetry.NewServer(hub, slog.Default())
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: srv.Handler()}
	go func() {
		slog.Info("telemetry server listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("telemetry server failed", "error", err)
		}
	}()
	defer httpServer.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	state := &monitorState{filter: f, hub: hub, decimation: decimation}

	if noTUI {
		return runHeadless(ctx, state, sigCh)
	}
	return runDashboard(ctx, state, sigCh)
}

// monitorState tracks the synthetic generator's phase and running totals
// reported to the telemetry hub.
type monitorState struct {
	filter         *filter.Filter
	hub            *telemetry.Hub
	decimation     int
	phase          float64
	generatedTotal int64
}

// feedAndDrain pushes one block of synthetic samples and drains all
// producible output, returning the number of complex samples generated.
func (s *monitorState) feedAndDrain(blockLen int) (int, error) {
	data := make([]int16, 2*blockLen)
	const freqNorm = 0.01 // cycles per sample of the synthetic input tone
	for i := 0; i < blockLen; i++ {
		s.phase += 2 * math.Pi * freqNorm
		data[2*i] = int16(30000 * math.Cos(s.phase))
		data[2*i+1] = int16(30000 * math.Sin(s.phase))
	}

	buf := samplebuf.New(data)
	if err := s.filter.Push(buf); err != nil {
		return 0, err
	}

	out := make([]int16, 2*blockLen)
	n, err := s.filter.Process(out, blockLen)
	if err != nil {
		return 0, err
	}
	s.generatedTotal += int64(n)

	held := 1
	if s.filter.Full() {
		held = 2
	}
	s.hub.Broadcast(telemetry.Snapshot{
		BuffersHeld:    held,
		GeneratedTotal: s.generatedTotal,
	})

	return n, nil
}

func runHeadless(ctx context.Context, s *monitorState, sigCh <-chan os.Signal) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.feedAndDrain(256); err != nil {
				return err
			}
			slog.Debug("tick", "generated_total", s.generatedTotal)
		}
	}
}

func loadOrSynthesizeTaps(path string, n int) (re, im []int16, err error) {
	if path != "" {
		return loadTapsFile(path)
	}
	return synthesizeLowPass(n), make([]int16, n), nil
}

func loadTapsFile(path string) (re, im []int16, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size()%4 != 0 {
		return nil, nil, fmt.Errorf("tap file size %d is not a multiple of 4 bytes (re+im int16 pairs)", info.Size())
	}

	n := int(info.Size() / 4)
	re = make([]int16, n)
	im = make([]int16, n)

	for i := 0; i < n; i++ {
		var pair [2]int16
		if err := binary.Read(f, binary.LittleEndian, &pair); err != nil {
			return nil, nil, fmt.Errorf("reading tap %d: %w", i, err)
		}
		re[i] = pair[0]
		im[i] = pair[1]
	}

	return re, im, nil
}

// synthesizeLowPass generates a Blackman-windowed sinc low-pass tap set
// with cutoff fixed at 1/8 of the sample rate, Q.15 quantized.
func synthesizeLowPass(n int) []int16 {
	if n < 1 {
		n = 1
	}
	taps := make([]int16, n)
	const cutoff = 0.125
	center := float64(n-1) / 2

	for i := 0; i < n; i++ {
		x := float64(i) - center
		var sinc float64
		if x == 0 {
			sinc = 2 * cutoff
		} else {
			sinc = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}

		t := float64(i) / float64(n-1)
		window := 0.42 - 0.5*math.Cos(2*math.Pi*t) + 0.08*math.Cos(4*math.Pi*t)

		taps[i] = floatToQ15(sinc * window)
	}
	return taps
}

func floatToQ15(v float64) int16 {
	scaled := math.Round(v * 32768)
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int16(scaled)
	}
}

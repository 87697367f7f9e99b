// Command iq-taps converts a plain-text two-column tap file (one "re im"
// floating-point pair per line, each in [-1, 1)) into Q.15 binary tap
// files consumable by filter.Config, and can report the frequency
// response of the result.
//
// Usage:
//
//	iq-taps [options] <input.txt> <output-prefix>
//
// Options:
//
//	-analyze     Print a frequency-response summary of the converted taps
//	-fft-size    FFT size used for -analyze (power of two, default 256)
//	-verbose     Show progress and details
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sdrfir/response"
)

var (
	analyze = flag.Bool("analyze", false, "Print a frequency-response summary of the converted taps")
	fftSize = flag.Int("fft-size", 256, "FFT size used for -analyze (power of two)")
	verbose = flag.Bool("verbose", false, "Show progress and details")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input.txt> <output-prefix>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Converts a text tap file to Q.15 binary taps (<prefix>_re.bin, <prefix>_im.bin).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath, outputPrefix string) error {
	coeffsRe, coeffsIm, err := readTapFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}
	if *verbose {
		fmt.Printf("Read %d taps from %s\n", len(coeffsRe), inputPath)
	}

	if err := writeQ15File(outputPrefix+"_re.bin", coeffsRe); err != nil {
		return fmt.Errorf("writing real taps: %w", err)
	}
	if err := writeQ15File(outputPrefix+"_im.bin", coeffsIm); err != nil {
		return fmt.Errorf("writing imaginary taps: %w", err)
	}

	fmt.Printf("Wrote %d taps to %s_re.bin / %s_im.bin\n", len(coeffsRe), outputPrefix, outputPrefix)

	if *analyze {
		bins, err := response.Analyze(coeffsRe, coeffsIm, *fftSize)
		if err != nil {
			return fmt.Errorf("analyzing response: %w", err)
		}
		printResponseSummary(bins)
	}

	return nil
}

func readTapFile(path string) (re, im []int16, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("line %d: expected 2 fields, got %d", lineNo, len(fields))
		}

		reVal, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parsing real part: %w", lineNo, err)
		}
		imVal, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parsing imaginary part: %w", lineNo, err)
		}

		re = append(re, floatToQ15(reVal))
		im = append(im, floatToQ15(imVal))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if len(re) == 0 {
		return nil, nil, errors.New("no taps found in input")
	}

	return re, im, nil
}

func floatToQ15(v float64) int16 {
	scaled := v * 32768
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int16(scaled)
	}
}

func writeQ15File(path string, taps []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, v := range taps {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return w.Flush()
}

func printResponseSummary(bins []response.Bin) {
	fmt.Println("\nFrequency response (normalized freq, magnitude dB):")
	step := len(bins) / 16
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(bins); i += step {
		b := bins[i]
		fmt.Printf("  %+.4f  %7.2f dB\n", b.FreqNormalized, b.MagnitudeDB)
	}
}

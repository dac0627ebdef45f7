// Command framegen writes a synthetic serial capture: simulated sensor frames,
// optionally interleaved with the kind of noise a real line carries (boot
// banners, truncated frames). The output feeds framecheck and replay tests.
//
// Usage:
//
//	go run ./cmd/framegen -n 500 -seed 7 -noise 0.05 -out testdata/capture.log
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/control-room/internal/adapter/simulator"
	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/spf13/afero"
)

// noiseLines are non-frame lines seen on the wire while receivers reboot.
var noiseLines = []string{
	"ets Jul 29 2019 12:21:46",
	"rst:0x1 (POWERON_RESET),boot:0x13 (SPI_FAST_FLASH_BOOT)",
	"ESP-NOW receiver ready",
}

func main() {
	n := flag.Int("n", 100, "number of lines to write")
	seed := flag.Uint64("seed", 1, "random seed")
	noise := flag.Float64("noise", 0, "share of noise lines, 0..1")
	catalogPath := flag.String("catalog", "", "sensor catalog TOML file (built-in set when empty)")
	out := flag.String("out", "", "output file (stdout when empty)")
	flag.Parse()

	if *n < 0 || *noise < 0 || *noise > 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*n, *seed, *noise, *catalogPath, *out); err != nil {
		log.Fatal(err)
	}
}

func run(n int, seed uint64, noise float64, catalogPath, outPath string) error {
	catalog, err := domain.LoadCatalog(afero.NewOsFs(), catalogPath)
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := generate(w, catalog, n, seed, noise); err != nil {
		return fmt.Errorf("writing capture: %w", err)
	}
	if outPath != "" {
		log.Printf("wrote %d lines to %s", n, outPath)
	}
	return nil
}

// generate writes n lines. The same seed and noise always yield the same output.
func generate(w io.Writer, catalog domain.Catalog, n int, seed uint64, noise float64) error {
	sim := simulator.New(catalog, time.Second, seed)
	rng := rand.New(rand.NewPCG(seed, ^seed))

	bw := bufio.NewWriter(w)
	for range n {
		var line []byte
		switch {
		case noise > 0 && rng.Float64() < noise:
			if rng.IntN(2) == 0 {
				line = []byte(noiseLines[rng.IntN(len(noiseLines))])
			} else {
				frame := sim.Next()
				line = frame[:1+rng.IntN(len(frame)-1)]
			}
		default:
			line = sim.Next()
		}
		if _, err := bw.Write(append(line, '\r', '\n')); err != nil {
			return err
		}
	}
	return bw.Flush()
}

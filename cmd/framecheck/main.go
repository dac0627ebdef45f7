// Command framecheck validates a captured serial log against the sensor
// catalog. It prints a verdict per rejected line (every line with -v), counts
// per tag and per rejection reason, and exits non-zero when the share of
// rejected lines exceeds -max-reject.
//
// Usage:
//
//	go run ./cmd/framecheck -catalog sensors.toml capture.log
//	cat capture.log | go run ./cmd/framecheck -max-reject 0.05
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/couchcryptid/control-room/internal/adapter/uart"
	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/couchcryptid/control-room/internal/pipeline"
	"github.com/spf13/afero"
)

// report aggregates the verdicts for one capture.
type report struct {
	lines    int
	accepted int
	byTag    map[string]int
	byReason map[string]int
}

func (r report) rejected() int { return r.lines - r.accepted }

func (r report) rejectRatio() float64 {
	if r.lines == 0 {
		return 0
	}
	return float64(r.rejected()) / float64(r.lines)
}

func main() {
	os.Exit(run(os.Args[1:], afero.NewOsFs(), os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on PASS, 1 on FAIL or error, 2 on
// bad usage.
func run(args []string, fs afero.Fs, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("framecheck", flag.ContinueOnError)
	flags.SetOutput(stderr)
	catalogPath := flags.String("catalog", "", "sensor catalog TOML file (built-in set when empty)")
	maxReject := flags.Float64("max-reject", 0, "highest tolerated share of rejected lines, 0..1")
	verbose := flags.Bool("v", false, "print a verdict for every line")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return 2
	}

	catalog, err := domain.LoadCatalog(fs, *catalogPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	in := stdin
	if flags.NArg() == 1 {
		f, err := fs.Open(flags.Arg(0))
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		in = f
	}

	rep, err := check(in, catalog, *verbose, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	printSummary(stdout, rep, catalog)

	if rep.rejectRatio() > *maxReject {
		fmt.Fprintf(stdout, "FAIL: %.1f%% rejected, limit %.1f%%\n", rep.rejectRatio()*100, *maxReject*100)
		return 1
	}
	fmt.Fprintln(stdout, "PASS")
	return 0
}

// check runs every non-empty line through the same transformer the service
// uses and writes one verdict per rejected line, or per line when verbose.
func check(in io.Reader, catalog domain.Catalog, verbose bool, out io.Writer) (report, error) {
	tfm := pipeline.NewTransformer(catalog)
	rep := report{byTag: map[string]int{}, byReason: map[string]int{}}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		rep.lines++

		if len(line) > uart.MaxLineLength {
			rep.byReason["too_long"]++
			fmt.Fprintf(out, "%d: REJECT too_long (%d bytes)\n", n, len(line))
			continue
		}

		r, err := tfm.Transform(context.Background(), domain.RawFrame{Line: line})
		if err != nil {
			reason := pipeline.RejectReason(err)
			rep.byReason[reason]++
			fmt.Fprintf(out, "%d: REJECT %s: %v\n", n, reason, err)
			continue
		}
		rep.accepted++
		rep.byTag[r.Tag]++
		if verbose {
			fmt.Fprintf(out, "%d: OK %s %s=%g\n", n, r.Tag, r.Field, r.Value)
		}
	}
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("read capture: %w", err)
	}
	return rep, nil
}

func printSummary(out io.Writer, rep report, catalog domain.Catalog) {
	fmt.Fprintf(out, "\nlines: %d  accepted: %d  rejected: %d\n", rep.lines, rep.accepted, rep.rejected())

	fmt.Fprintln(out, "\nreadings per sensor:")
	for _, tag := range catalog.Tags() {
		fmt.Fprintf(out, "  %-8s %d\n", tag, rep.byTag[tag])
	}

	if len(rep.byReason) > 0 {
		fmt.Fprintln(out, "\nrejections:")
		reasons := make([]string, 0, len(rep.byReason))
		for reason := range rep.byReason {
			reasons = append(reasons, reason)
		}
		slices.Sort(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(out, "  %-14s %d\n", reason, rep.byReason[reason])
		}
	}
}

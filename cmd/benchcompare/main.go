// Command benchcompare diffs two `go test -bench` outputs (e.g. a
// baseline captured before a change and a candidate captured after) and
// fails with a non-zero exit code if any benchmark regressed past a
// threshold. Intended for the repo's own benchmarks
// (internal/sizer/sizer_bench_test.go for the Sizer, pipeline_bench_test.go
// for Store/Retrieve), run once on the base branch and once on the change
// under review.
//
// golang.org/x/perf/benchstat is a teacher-side tool dependency (used in
// CI, never imported as a library by any package in the gateway); this
// command is its first in-repo caller.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"golang.org/x/perf/benchstat"
)

// percentDelta matches benchstat's "+12.34%" / "-3.21%" column; "~" (no
// significant change) and "?" (insufficient samples) don't match and are
// treated as non-regressions.
var percentDelta = regexp.MustCompile(`\+([0-9]+\.[0-9]+)%`)

func main() {
	threshold := flag.Float64("threshold", 10.0, "regression threshold percentage; candidate benchmarks slower than this fail the comparison")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: benchcompare [--threshold=10.0] <baseline.txt> <candidate.txt>")
		os.Exit(2)
	}
	baselinePath, candidatePath := args[0], args[1]

	var c benchstat.Collection
	if err := addFile(&c, "baseline", baselinePath); err != nil {
		fmt.Fprintf(os.Stderr, "benchcompare: %v\n", err)
		os.Exit(1)
	}
	if err := addFile(&c, "candidate", candidatePath); err != nil {
		fmt.Fprintf(os.Stderr, "benchcompare: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	benchstat.FormatText(&buf, c.Tables())
	os.Stdout.Write(buf.Bytes())

	if worst, regressed := worstRegression(buf.Bytes(), *threshold); regressed {
		fmt.Fprintf(os.Stderr, "benchcompare: regression of +%.2f%% exceeds threshold of %.1f%%\n", worst, *threshold)
		os.Exit(1)
	}
}

func addFile(c *benchstat.Collection, config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return c.AddConfig(config, data)
}

// worstRegression scans benchstat's rendered comparison table for the
// largest positive percent-change and reports whether it exceeds
// threshold. Parsing the rendered text rather than benchstat's internal
// Table/Row fields keeps this command decoupled from those fields' exact
// shape across benchstat versions.
func worstRegression(formatted []byte, threshold float64) (float64, bool) {
	var worst float64
	for _, m := range percentDelta.FindAllSubmatch(formatted, -1) {
		v, err := strconv.ParseFloat(string(m[1]), 64)
		if err != nil {
			continue
		}
		if v > worst {
			worst = v
		}
	}
	return worst, worst > threshold
}

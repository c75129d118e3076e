// cmd/cpsi/main.go
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"cpsi/internal/debugserver"
	"cpsi/internal/scenario"
	"cpsi/internal/trace"
)

const Version = "0.1.0"

var BuildDate = time.Now().Format("2006-01-02")

var commandAliases = map[string]string{
	"r": "run",
	"s": "scenarios",
	"v": "version",
	"h": "help",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "help", "--help", "-h":
		showUsage()
	case "version", "--version", "-v":
		showVersion()
	case "run", "scenarios":
		if !runScenarios(args[1:]) {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "cpsi: unknown command %q\n\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

type flags struct {
	traceType string
	traceDSN  string
	debugAddr string
}

func parseFlags(args []string) flags {
	f := flags{traceType: "sqlite"}
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--trace-dsn="):
			f.traceDSN = strings.TrimPrefix(a, "--trace-dsn=")
		case strings.HasPrefix(a, "--trace-type="):
			f.traceType = strings.TrimPrefix(a, "--trace-type=")
		case strings.HasPrefix(a, "--debug-addr="):
			f.debugAddr = strings.TrimPrefix(a, "--debug-addr=")
		}
	}
	return f
}

// runScenarios drives the six golden end-to-end scenarios (spec.md §8
// S1-S6) to completion and reports pass/fail. Returns false if any
// scenario failed.
func runScenarios(args []string) bool {
	f := parseFlags(args)
	runID := uuid.NewString()

	var sink *trace.Sink
	if f.traceDSN != "" {
		s, err := trace.Open(f.traceType, f.traceDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cpsi: trace: %v\n", err)
		} else {
			sink = s
			defer sink.Close()
		}
	}

	var dbg *debugserver.Server
	if f.debugAddr != "" {
		dbg = debugserver.New(f.debugAddr)
		if err := dbg.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "cpsi: debug server: %v\n", err)
			dbg = nil
		} else {
			defer dbg.Stop()
		}
	}

	color := isatty.IsTerminal(os.Stdout.Fd())
	results := scenario.All()
	allPassed := true

	for i, r := range results {
		printResult(r, color)
		if !r.Passed {
			allPassed = false
		}
		if sink != nil {
			exc := ""
			if !r.Passed {
				exc = r.Got
			}
			if err := sink.Record(trace.Step{
				RunID:     runID,
				StepIndex: int64(i),
				NodeKind:  r.Name,
				StoreSize: 0,
				Exception: exc,
			}); err != nil {
				fmt.Fprintf(os.Stderr, "cpsi: trace record: %v\n", err)
			}
		}
		if dbg != nil {
			dbg.Step(runID, r.Name, r.Got, 0)
		}
	}

	printSummary(results, color)
	if sink != nil {
		fmt.Println(sink.Summary())
	}

	return allPassed
}

func printResult(r scenario.Result, color bool) {
	symbol, c := "PASS", ""
	if !r.Passed {
		symbol, c = "FAIL", ""
	}
	if color {
		if r.Passed {
			c = "\033[32m"
		} else {
			c = "\033[31m"
		}
		fmt.Printf("%s%-5s\033[0m %-20s (%v)\n", c, symbol, r.Name, r.Duration)
	} else {
		fmt.Printf("%-5s %-20s (%v)\n", symbol, r.Name, r.Duration)
	}
	if !r.Passed {
		fmt.Printf("    got:  %s\n    want: %s\n", r.Got, r.Want)
	}
}

func printSummary(results []scenario.Result, color bool) {
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	line := fmt.Sprintf("%d/%d scenarios passed", passed, len(results))
	if color && passed == len(results) {
		fmt.Printf("\033[32m%s\033[0m\n", line)
	} else if color {
		fmt.Printf("\033[31m%s\033[0m\n", line)
	} else {
		fmt.Println(line)
	}
}

func showUsage() {
	fmt.Println("cpsi - a CPS intermediate-language evaluator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cpsi run [--trace-dsn=DSN] [--trace-type=TYPE] [--debug-addr=ADDR]")
	fmt.Println("      Run the golden S1-S6 scenarios               (alias: r, scenarios, s)")
	fmt.Println("  cpsi version                                     (alias: v)")
	fmt.Println("  cpsi help                                        (alias: h)")
	fmt.Println()
	fmt.Println("Flags (run):")
	fmt.Println("  --trace-dsn=DSN      record each scenario to a SQL trace sink")
	fmt.Println("  --trace-type=TYPE    sqlite (default), postgres, mysql, sqlserver")
	fmt.Println("  --debug-addr=ADDR    serve a websocket step broadcaster at ADDR")
}

func showVersion() {
	fmt.Printf("cpsi %s (built %s)\n", Version, BuildDate)
}

// Command greq runs .greq HTTP API test files.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/greqlabs/greq"
)

const (
	exitAllPassed  = 0
	exitTestFailed = 1
	exitUsageError = 2
)

var flags struct {
	Verbose bool
	Summary bool
	Jobs    int
	Rate    float64
}

var rootCmd = &cobra.Command{
	Use:   "greq [flags] FILE [FILE...]",
	Short: "greq — file-based HTTP API test runner",
	Long: `greq parses .greq test files, resolves their extends and depends-on
relationships, substitutes environment and dependency placeholders,
issues the HTTP requests and evaluates the footer assertions.

Exit status is 0 when every test passes, 1 when any test fails, and 2
on usage errors.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func run(cmd *cobra.Command, args []string) error {
	logger, closeLog := greq.NewLogger(os.Stderr, flags.Verbose)
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := greq.NewRunner(
		greq.WithLogger(logger),
		greq.WithWorkers(flags.Jobs),
		greq.WithClient(greq.NewClient(
			greq.WithClientLogger(logger),
			greq.WithRateLimit(flags.Rate),
		)),
	)

	verdicts, err := runner.Run(ctx, args)
	if err != nil {
		logger.Error("run failed", "error", err)
	}

	printResults(verdicts)
	if flags.Summary {
		printSummary(verdicts)
	}

	failed := err != nil
	for _, v := range verdicts {
		if !v.Passed {
			failed = true
		}
	}
	if failed {
		return errTestsFailed
	}
	return nil
}

// errTestsFailed signals main to exit 1 without printing a usage error.
var errTestsFailed = errors.New("one or more tests failed")

// printResults writes the concise one-line status per test, with clause
// details on failure.
func printResults(verdicts []*greq.Verdict) {
	for _, v := range verdicts {
		switch {
		case v.Skipped:
			fmt.Printf("SKIP %s (%v)\n", v.Path, v.Err)
		case v.Passed:
			fmt.Printf("PASS %s (%d, %v)\n", v.Path, v.StatusCode, v.Latency)
		case v.Err != nil:
			fmt.Printf("FAIL %s (%v)\n", v.Path, v.Err)
		default:
			fmt.Printf("FAIL %s (%d, %v)\n", v.Path, v.StatusCode, v.Latency)
			for _, c := range v.Clauses {
				if !c.Passed {
					fmt.Printf("  clause %d: %s\n", c.Index, c.Reason)
				}
			}
		}
	}
}

// printSummary renders the verdict table.
func printSummary(verdicts []*greq.Verdict) {
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"File", "Result", "Status", "Latency", "Failed Clauses"})
	tw.SetBorder(true)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	for _, v := range verdicts {
		result := "pass"
		if v.Skipped {
			result = "skip"
		} else if !v.Passed {
			result = "fail"
		}
		failed := 0
		for _, c := range v.Clauses {
			if !c.Passed {
				failed++
			}
		}
		tw.Append([]string{
			v.Path,
			result,
			strconv.Itoa(v.StatusCode),
			v.Latency.String(),
			strconv.Itoa(failed),
		})
	}
	tw.Render()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flags.Verbose, "verbose", false, "enable detailed logging on the terminal")
	pf.BoolVar(&flags.Summary, "summary", false, "print a results table after the run")
	pf.IntVar(&flags.Jobs, "jobs", 0, "worker pool size (default: logical CPUs)")
	pf.Float64Var(&flags.Rate, "rate", 0, "max HTTP requests per second (default: unlimited)")
}

func main() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
		os.Exit(exitAllPassed)
	case errors.Is(err, errTestsFailed):
		os.Exit(exitTestFailed)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitUsageError)
	}
}

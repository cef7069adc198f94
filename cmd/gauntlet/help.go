// ABOUTME: Help display for the gauntlet CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for polished usage output and envStatus for API key detection.
package main

import (
	"fmt"
	"io"
	"os"
)

const gauntletASCII = `
      ___     ___     ___     ___     ___
     | 1 |   | 2 |   | 3 |   |...|   | N |
     |___|   |___|   |___|   |___|   |___|
   o
  /|\   >>-->>-->>-->>-->>-->>-->>-->>-->
  / \
`

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, examples, environment status, and a docs link.
func printHelp(w io.Writer, ver string) {
	fmt.Fprint(w, gauntletASCII)
	fmt.Fprintf(w, "gauntlet %s — automated runner for step-gated web challenges\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gauntlet -url <base-url> [flags]    Run the full step sequence")
	fmt.Fprintln(w, "  gauntlet -url <base-url> -tui       Run with the terminal dashboard")
	fmt.Fprintln(w, "  gauntlet -config <file.yaml>        Run with settings from a config file")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Run Flags:")
	fmt.Fprintln(w, "  -url <url>            Base URL of the challenge (required)")
	fmt.Fprintln(w, "  -headless             Run the browser headless (default: true)")
	fmt.Fprintln(w, "  -steps <n>            Steps in the sequence (default: 30)")
	fmt.Fprintln(w, "  -threshold <n>        Solved steps counted as success (default: 28)")
	fmt.Fprintln(w, "  -max-retries <n>      Attempts per step before skipping (default: 3)")
	fmt.Fprintln(w, "  -skip-range <n>       Forward steps tried before abandoning (default: 3)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Budget Flags:")
	fmt.Fprintln(w, "  -run-budget <dur>     Whole-run ceiling (default: 4m50s)")
	fmt.Fprintln(w, "  -step-budget <dur>    Per-step ceiling (default: 40s)")
	fmt.Fprintln(w, "  -attempt-budget <dur> Single-attempt ceiling (default: 15s)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Model Flags:")
	fmt.Fprintln(w, "  -fast-model <name>    Text model for the model tier")
	fmt.Fprintln(w, "  -vision-model <name>  Image-capable model for the vision tier")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Output Flags:")
	fmt.Fprintln(w, "  -db <path>            SQLite file for run persistence")
	fmt.Fprintln(w, "  -report <path>        Write a markdown report after the run")
	fmt.Fprintln(w, "  -status-addr <addr>   Serve the live status page (e.g. 127.0.0.1:8723)")
	fmt.Fprintln(w, "  -tui                  Run with the interactive terminal dashboard")
	fmt.Fprintln(w, "  -config <path>        YAML config file")
	fmt.Fprintln(w, "  -v                    Verbose event output")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  gauntlet -url http://challenge.local:8025")
	fmt.Fprintln(w, "  gauntlet -url http://challenge.local:8025 -tui -db runs.db")
	fmt.Fprintln(w, "  gauntlet -url http://challenge.local:8025 -steps 10 -threshold 8")
	fmt.Fprintln(w, "  gauntlet -config gauntlet.yaml -status-addr 127.0.0.1:8723")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  OPENROUTER_API_KEY    %s\n", envStatus("OPENROUTER_API_KEY"))
	fmt.Fprintf(w, "  GAUNTLET_LLM_API_KEY  %s\n", envStatus("GAUNTLET_LLM_API_KEY"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  An API key enables the model and vision tiers; without one only the")
	fmt.Fprintln(w, "  rules tier runs. Every flag has a GAUNTLET_* variable (GAUNTLET_URL,")
	fmt.Fprintln(w, "  GAUNTLET_RUN_BUDGET, ...).")
	fmt.Fprintln(w, "  Precedence: defaults < config file < environment < flags.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Docs: https://github.com/2389-research/gauntlet")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}

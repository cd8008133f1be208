package main

import (
	"fmt"
	"os"

	"github.com/edicraft/edipipe/cmd/edipipe/commands"
)

// validCommands lists all valid command names for typo suggestions.
var validCommands = []string{"process", "batch", "validate", "quarantine", "version", "help"}

// levenshteinDistance calculates the minimum edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range len(b) + 1 {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// suggestCommand returns the closest matching command if the edit distance is <= 2.
func suggestCommand(input string) string {
	var bestMatch string
	bestDistance := 3

	for _, cmd := range validCommands {
		dist := levenshteinDistance(input, cmd)
		if dist < bestDistance {
			bestDistance = dist
			bestMatch = cmd
		}
	}

	return bestMatch
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	var code int
	var err error

	switch command {
	case "version", "-v", "--version":
		fmt.Println("edipipe (development build)")
		return
	case "help", "-h", "--help":
		printUsage()
		return
	case "process":
		code, err = commands.HandleProcess(os.Args[2:])
	case "batch":
		code, err = commands.HandleBatch(os.Args[2:])
	case "validate":
		code, err = commands.HandleValidate(os.Args[2:])
	case "quarantine":
		code, err = commands.HandleQuarantine(os.Args[2:])
	default:
		commands.Writef(os.Stderr, "Unknown command: %s\n", command)
		if suggestion := suggestCommand(command); suggestion != "" {
			commands.Writef(os.Stderr, "Did you mean: %s?\n", suggestion)
		}
		commands.Writef(os.Stderr, "\n")
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		commands.Writef(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func printUsage() {
	fmt.Println(`edipipe - EDI ingestion, validation, mapping, and persistence pipeline

Usage:
  edipipe <command> [options]

Commands:
  process     Run a single file through the pipeline
  batch       Run every matching file in a directory as one batch
  validate    Validate a file's messages without rendering output
  quarantine  Inspect and manage a persistent quarantine store
  version     Show version information
  help        Show this help message

Examples:
  edipipe process orders.edi
  edipipe process --policy Quarantine --format Json orders.edi
  edipipe batch --policy AcceptAll ./incoming
  edipipe validate --strictness Strict orders.edi
  edipipe quarantine list --db quarantine.sqlite

Run 'edipipe <command> --help' for more information on a command.`)
}

// Command tempering finds the cheapest tempering routes through a steel
// tempering dataset, either as a batch over a query file or as an HTTP API.
package main

import (
	"fmt"
	"os"
)

func main() {
	command := "run"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "run":
		err = runBatch(args)
	case "serve":
		err = runServe(args)
	case "stats":
		err = runStats(args)
	case "token":
		err = runToken(args)
	case "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tempering %s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	usage := `tempering - tempering route optimizer

Usage:
  tempering [command] [options]

Available Commands:
  run      Run every query in the query file and write reports (default)
  serve    Serve the optimizer over HTTP
  stats    Print the shape of the process graph built from the dataset
  token    Mint an API bearer token
  help     Show this help message

Use "tempering <command> -h" for the options of a command.
`
	fmt.Print(usage)
}

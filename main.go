// Command alignverts runs an alignment script against a fresh edit session
// and prints the result as JSON.
//
// Usage:
//
//	alignverts [-config alignverts.yaml] [-mesh] -script file.lisp
//
// A script of "-" is read from standard input.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chazu/alignverts/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet("alignverts", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (defaults apply when empty)")
	scriptPath := fs.String("script", "", "script to evaluate, or - for stdin")
	withMesh := fs.Bool("mesh", false, "include the committed mesh in the output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *scriptPath == "" {
		fmt.Fprintln(fs.Output(), "alignverts: -script is required")
		fs.Usage()
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Printf("alignverts: %v", err)
			return 1
		}
	}

	source, err := readScript(*scriptPath, stdin)
	if err != nil {
		log.Printf("alignverts: %v", err)
		return 1
	}

	result := NewApp(cfg).Evaluate(string(source))
	if !*withMesh {
		result.Mesh = nil
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Printf("alignverts: encode result: %v", err)
		return 1
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func readScript(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return data, nil
}

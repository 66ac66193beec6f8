// Package main provides a debugging CLI that classifies and parses a QR
// payload without touching any backing store.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/scan-gateway/internal/qr"
)

func main() {
	var (
		mode = flag.String("mode", "all", "Scanner mode to check against: send, connect, all")
	)
	flag.Parse()

	payload := strings.Join(flag.Args(), " ")
	if payload == "" {
		// No args: read one payload per line from stdin.
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			report(scanner.Text(), qr.Mode(*mode))
		}
		if err := scanner.Err(); err != nil {
			log.Fatalf("Failed to read stdin: %v", err)
		}
		return
	}

	report(payload, qr.Mode(*mode))
}

func report(payload string, mode qr.Mode) {
	parsed := qr.Parse(payload)

	out := struct {
		Detected qr.Type   `json:"detected"`
		Allowed  bool      `json:"allowed"`
		Mode     qr.Mode   `json:"mode"`
		Parsed   qr.Parsed `json:"parsed"`
	}{
		Detected: parsed.Type,
		Allowed:  qr.Allowed(parsed.Type, mode),
		Mode:     mode,
		Parsed:   parsed,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(data))
}

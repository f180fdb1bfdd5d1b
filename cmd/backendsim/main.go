// Command backendsim runs an in-memory fake of the Call Backend Service.
//
// Usage:
//
//	backendsim [flags]
//
// Flags:
//
//	-port          Port to listen on (default: 8081)
//	-host          Host to bind to (default: localhost)
//	-fail-batches  Fail this many batch requests before succeeding
//	-under-report  Report this many fewer processed calls per batch
//	-seed          Exemplar seed for simulate endpoints (0 = random)
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dispatchdesk/internal/backendsim"
)

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	failBatches := flag.Int("fail-batches", 0, "number of batch requests to fail before succeeding")
	underReport := flag.Int("under-report", 0, "report this many fewer processed calls per batch")
	seed := flag.Int64("seed", 0, "exemplar seed for simulate endpoints (0 = random)")
	verbose := flag.Bool("verbose", false, "log every batch")
	flag.Parse()

	opts := backendsim.Options{Seed: *seed}
	if *verbose {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	server := backendsim.NewServer(opts)
	server.FailNextBatches(*failBatches)
	server.SetUnderReport(*underReport)
	addr := fmt.Sprintf("%s:%d", *host, *port)

	fmt.Println("Call Backend Simulator")
	fmt.Println("======================")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  GET    /health                        - Health check")
	fmt.Println("  GET    /api/calls                     - All calls")
	fmt.Println("  GET    /api/calls/active              - Unanswered calls")
	fmt.Println("  GET    /api/calls/{id}                - One call")
	fmt.Println("  POST   /api/calls/process             - Process one call")
	fmt.Println("  POST   /api/calls/batch               - Process a batch")
	fmt.Println("  POST   /api/calls/simulate            - Process one generated call")
	fmt.Println("  POST   /api/calls/batch-simulate      - Generate calls (?count=100)")
	fmt.Println("  POST   /api/calls/{id}/answer         - Mark answered")
	fmt.Println("  POST   /api/calls/{id}/transcription  - Attach operator text")
	fmt.Println("  DELETE /api/calls/clear               - Delete everything")
	fmt.Println()
	fmt.Printf("Point the dashboard at it with AGENT_API_URL=http://%s\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		os.Exit(0)
	}()

	log.Fatal(http.ListenAndServe(addr, server.Handler()))
}

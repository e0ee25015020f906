// Command eventsched runs the on-premise scheduled event orchestrator:
// the ingestion consumer, the lease-based poller, lease-recovery and
// retention loops, and the REST/metrics HTTP server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

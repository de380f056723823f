// Package main implements the entry point for the planloop scheduling
// engine: the background process that computes recurring task successors
// and dispatches once-daily push notifications.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	app.Start()
	<-stop

	app.Shutdown()
}

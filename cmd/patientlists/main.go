// Package main provides patientlists, which serves, resolves and migrates dynamic patient lists.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	exitCode := cli.Run(ctx, os.Stdout, os.Stderr, os.Args)

	stop()
	os.Exit(exitCode)
}

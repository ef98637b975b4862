// Package main runs the inventag command-line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	inventagcmd "github.com/louisbranch/inventag/internal/cmd/inventag"
	"github.com/louisbranch/inventag/internal/platform/config"
)

func main() {
	fs := pflag.NewFlagSet("inventag", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, inventagcmd.Usage)
		fs.PrintDefaults()
	}
	cfg, err := inventagcmd.ParseConfig(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if errors.Is(err, inventagcmd.ErrUsage) {
		fs.Usage()
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(2)
	}
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix("[INVENTAG] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdio := inventagcmd.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	if err := inventagcmd.Run(ctx, cfg, stdio); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		config.Exitf("Error: %v", err)
	}
}

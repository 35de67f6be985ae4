// seekr-cli is an interactive shell for a running seekr-server.
//
// # Usage
//
//	seekr-cli [--addr http://localhost:5000]
//
// Arguments are split like a POSIX shell, so names with spaces can be
// quoted:
//
//	> create "broker a" KAFKA retention.ms=3600000
//	> list
//	> get 0190b5d2-7c1e-7a3b-9c2d-0e1f2a3b4c5d
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/acksell/seekr/client"
)

func main() {
	defaultAddr := "http://localhost:5000"
	if v, ok := os.LookupEnv("SEEKR_ADDR"); ok {
		defaultAddr = v
	}

	fs := pflag.NewFlagSet("seekr-cli", pflag.ContinueOnError)
	addr := fs.String("addr", defaultAddr, "seekr-server base URL (env SEEKR_ADDR)")
	timeout := fs.Duration("timeout", 15*time.Second, "per-request timeout")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(*addr, client.WithHTTPClient(&http.Client{Timeout: *timeout}))

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	if err := repl(ctx, c, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "input error:", err)
		os.Exit(1)
	}
}

// Command send attaches a component and publishes one record, for poking
// at a running crossbus server from the shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/frontmesh/crossbus/clients/go/crossbus"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "crossbus server URL")
	from := flag.String("from", "shell", "publishing component name")
	to := flag.String("to", "", "target component name (required)")
	typ := flag.String("type", crossbus.DefaultType, "record type")
	payload := flag.String("payload", "", "payload string (required)")
	flag.Parse()

	if *to == "" || *payload == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := crossbus.NewClient(*server, *from)

	if err := c.Attach(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "attach failed: %v\n", err)
		os.Exit(1)
	}

	rec, err := c.Publish(ctx, *to, *typ, *payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("published %s -> %s [%s] id=%s ts=%d\n", *from, *to, *typ, rec.ID, rec.Timestamp)
}

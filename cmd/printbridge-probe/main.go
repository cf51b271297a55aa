package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"printbridge-probe/internal/bootstrap"
)

func main() {
	var opts bootstrap.Options
	flag.StringVar(&opts.ConfigPath, "config", "", "path to the config file (default .config.yaml)")
	flag.StringVar(&opts.BridgeURL, "url", "", "bridge websocket url (overrides config)")
	flag.BoolVar(&opts.EnableStub, "stub", false, "run the loopback stub bridge and probe it")
	flag.Parse()

	fmt.Printf("[%s] [INFO] [Bootstrap] starting printbridge-probe...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), opts); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "printbridge-probe failed: %v\n", err)
		os.Exit(1)
	}
}

// Command argusd runs the argus analysis daemon in the foreground. It is
// the entry point for service managers; interactive use normally goes
// through `argus start`, which launches the same runtime detached.
package main

import (
	"context"
	"flag"
	"log"

	"argus/internal/config"
	"argus/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("argusd: %v", err)
	}
}

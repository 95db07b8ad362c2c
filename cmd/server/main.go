package main

import (
	"flag"
	"log"

	approuters "parley/internal/app_routers"
	"parley/internal/configuration"
)

func main() {
	configPath := flag.String("config", "shared/config.dev.json", "path to the configuration file")
	flag.Parse()

	container, err := configuration.BuildContainer(*configPath)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	// Setup routers
	approuters.StartServer(container)
}

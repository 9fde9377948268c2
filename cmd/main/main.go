package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/BartekS5/tap-netsuite/internal/cli"
	"github.com/BartekS5/tap-netsuite/pkg/logger"
)

func main() {
	log := logger.New(os.Stderr)

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("tap-netsuite failed: %v", err)
		os.Exit(1)
	}
}

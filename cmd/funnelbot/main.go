package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/m3rciful/funnelbot/bot/app"
	corecmd "github.com/m3rciful/funnelbot/core/cmd"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("dotenv: %v", err)
	}

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("funnelbot: %v", err)
	}
}

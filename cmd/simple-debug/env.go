package main

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	envDebugger = "SIMPLE_DEBUG_DEBUGGER"
	envAddr     = "SIMPLE_DEBUG_ADDR"
	envDialect  = "SIMPLE_DEBUG_DIALECT"
)

// loadEnv reads .env from the working directory if there is one. Variables
// already set in the environment win.
func loadEnv() {
	_ = godotenv.Load()
}

func envOr(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

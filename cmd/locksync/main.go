package main

import (
	"github.com/example/locksync/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// optional .env for local use; real deployments set the environment
	_ = godotenv.Load()
	cmd.Execute()
}

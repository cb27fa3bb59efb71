// cmd/historian runs the standalone action-queue consumer: it pops room
// action records from Redis and persists them to PostgreSQL.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/rajamantri/server/internal/database"
	"github.com/rajamantri/server/internal/historian"
)

func main() {
	database.ConnectDB()

	hs := historian.NewServiceFromEnv()
	go hs.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	hs.Stop()
	log.Println("historian shutdown complete.")
}

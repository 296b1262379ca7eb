// Command placements runs placement searches, list analyses and report
// plans from the shell.
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cli"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stderr)

	_ = godotenv.Load()

	rps := 5
	if v, err := strconv.Atoi(os.Getenv("YOUTUBE_REQUESTS_PER_SECOND")); err == nil && v > 0 {
		rps = v
	}
	os.Exit(cli.Execute(cli.NewApp(rps)))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/nepq-coach-backend/internal/app"
)

func main() {
	var dryRun bool
	var batchSize int
	flag.BoolVar(&dryRun, "dry-run", false, "report recordings whose overall score would change without writing")
	flag.IntVar(&batchSize, "batch-size", 200, "recordings loaded per page")
	flag.Parse()

	log, err := app.NewLogger()
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	application, err := app.New(log)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	report, err := application.Services.Recording.RescoreAll(context.Background(), batchSize, dryRun)
	if err != nil {
		fmt.Printf("rescore: %v\n", err)
		os.Exit(1)
	}

	prefix := ""
	if dryRun {
		prefix = "[dry-run] "
	}
	fmt.Printf("%sdone; scanned=%d rescored=%d failed=%d\n", prefix, report.Scanned, report.Rescored, report.Failed)
}

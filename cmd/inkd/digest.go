package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/db/migrations"
	"github.com/inkos/inkd/internal/jobs"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/svc"
)

// DigestCmd creates the digest command: run one day's digest and print the
// stored logbook entry, without starting the server.
func DigestCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Build the daily digest for a date (default: yesterday)",
		Run: func(cmd *cobra.Command, args []string) {
			logging.Disable()
			migrations.QuietMode = true

			if err := runDigest(date); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to digest, YYYY-MM-DD (UTC)")
	return cmd
}

func runDigest(date string) error {
	svcCtx, err := svc.NewServiceContext(*ServerConfig)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	ctx := context.Background()
	payload, err := json.Marshal(jobs.DigestPayload{Date: date})
	if err != nil {
		return err
	}

	job, err := svcCtx.Jobs.RunNow(ctx, jobs.KindDailyDigest, payload)
	if err != nil {
		return err
	}
	if job.State == db.JobError {
		return fmt.Errorf("digest failed: %s", job.Error)
	}

	var result jobs.DigestResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return err
	}

	entry, err := svcCtx.DB.GetLogbookEntry(ctx, result.Date)
	if err != nil {
		return err
	}

	fmt.Printf("Digest for %s (%d notes, %d invocations, %d failures, %d jobs)\n\n",
		result.Date, result.Notes, result.Invocations, result.Failures, result.Jobs)
	fmt.Println(entry.Summary)
	return nil
}

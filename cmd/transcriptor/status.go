package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrianVia/transcriptor/internal/session"
)

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a recording is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			store, err := session.NewStore(cfg.Output.StateDir)
			if err != nil {
				return err
			}

			rec, err := store.Read()
			if err != nil {
				return err
			}

			if !rec.Recording {
				fmt.Println("idle")
				return nil
			}

			fmt.Printf("recording %q since %s (%s elapsed, pid %d)\n",
				rec.MeetingName,
				rec.StartTime.Format(time.RFC3339),
				time.Since(rec.StartTime).Round(time.Second),
				rec.PID,
			)
			fmt.Printf("output: %s\n", rec.OutputDir)
			return nil
		},
	}
}

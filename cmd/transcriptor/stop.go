package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrianVia/transcriptor/internal/session"
)

func newStopCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running recording",
		Long:  "Signals the recording process to stop. The recorder finishes transcribing the remaining chunks before it exits.",
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
				return session.ErrNotRecording
			}

			if err := session.NewFileStopSignal(store.Dir()).Request(); err != nil {
				return err
			}

			fmt.Printf("Stop requested for %q (pid %d). The recorder will finish transcribing and exit.\n",
				rec.MeetingName, rec.PID)
			return nil
		},
	}
}

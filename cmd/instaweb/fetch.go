package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"instaweb/internal/core/domain"
	"instaweb/internal/service"
)

var (
	fetchFormat string
	fetchProxy  string
)

var fetchCmd = &cobra.Command{
	Use:     "fetch <url>",
	Short:   "Download a single post or reel and exit",
	Example: "  instaweb fetch https://www.instagram.com/reel/Cabc123/ --format audio",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, ok := domain.ParseFormat(fetchFormat)
		if !ok {
			return fmt.Errorf("unknown format %q", fetchFormat)
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		orch, err := newOrchestrator(cfg, newEngine(cmd, cfg, logger), logger)
		if err != nil {
			return err
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			orch.Run(ctx)
		}()
		defer func() {
			cancel()
			<-done
		}()

		jobID, err := orch.Submit(ctx, service.SubmitRequest{
			URL:      args[0],
			Format:   format,
			Proxy:    fetchProxy,
			ClientID: "cli",
		})
		if err != nil {
			return errors.Wrap(err, "failed to submit job")
		}

		for ev := range orch.Watch(ctx, jobID) {
			var view domain.View
			if err := json.Unmarshal(ev.Data, &view); err != nil {
				return err
			}
			if view.Progress != nil && view.Progress.Percent != nil {
				fmt.Printf("\r%-8s %5.1f%%", view.Status, *view.Progress.Percent)
			}
		}
		fmt.Println()

		job, ok := orch.Job(jobID)
		if !ok {
			return errors.New("job disappeared before it finished")
		}

		// Print summary
		fmt.Println("\n=== Job Summary ===")
		fmt.Printf("Job ID:       %s\n", job.ID)
		fmt.Printf("Format:       %s\n", job.Format)
		fmt.Printf("Status:       %s\n", job.Status)
		if job.Status != domain.StatusReady {
			if job.Error == "" {
				return errors.New("download did not finish")
			}
			fmt.Printf("Error:        %s\n", job.Error)
			return errors.New(job.Error)
		}
		fmt.Printf("File:         %s\n", job.FilePath)
		if job.Size != nil {
			fmt.Printf("Size:         %d bytes\n", *job.Size)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", "video", "Output format: video or audio")
	fetchCmd.Flags().StringVar(&fetchProxy, "proxy", "", "Upstream proxy for yt-dlp")
}

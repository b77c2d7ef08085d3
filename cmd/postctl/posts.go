package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maheshrc27/contentpilot/internal/models"
)

var (
	listStatus        string
	scheduleAt        string
	schedulePlatforms []string
	publishAt         string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <client>",
	Short: "Rebuild a client's records from its asset folders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.Posts.Reconcile(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("reconciled %s\n", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <client>",
	Short: "List a client's posts",
	Long: `List reconciles the client and prints its posts as JSON.

Example:
  postctl list acme
  postctl list acme --status scheduled`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		posts, err := engine.Posts.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if listStatus != "" {
			want := models.ParseStatus(listStatus)
			filtered := posts[:0]
			for _, p := range posts {
				if p.Status == want {
					filtered = append(filtered, p)
				}
			}
			posts = filtered
		}
		return printJSON(posts)
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one scheduler tick and publish every due post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(engine.Job.RunOnce(cmd.Context()))
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a preview post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := engine.Actions.Approve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <id>",
	Short: "Queue a post for publishing at --at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, ok := models.ParsePublishAt(scheduleAt)
		if !ok {
			return fmt.Errorf("invalid --at %q, want RFC 3339", scheduleAt)
		}
		res, err := engine.Actions.Schedule(cmd.Context(), args[0], at, schedulePlatforms)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var postCmd = &cobra.Command{
	Use:   "post <id>",
	Short: "Mark a post as posted and move its assets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := engine.Actions.Post(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <id>",
	Short: "Send a post back to preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := engine.Actions.Revert(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var markPostedCmd = &cobra.Command{
	Use:   "mark-posted <id> <platform>",
	Short: "Record a manual post on one platform",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := engine.Actions.MarkPlatformPosted(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the audited publish outcomes of a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := engine.Publish.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(rows)
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a post now, or schedule it with --at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var at *time.Time
		if strings.TrimSpace(publishAt) != "" {
			t, ok := models.ParsePublishAt(publishAt)
			if !ok {
				return fmt.Errorf("invalid --at %q, want RFC 3339", publishAt)
			}
			at = &t
		}
		out, err := engine.Publish.Publish(cmd.Context(), args[0], at)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (preview, approved, scheduled, posted, published)")

	scheduleCmd.Flags().StringVar(&scheduleAt, "at", "", "publish time, RFC 3339")
	scheduleCmd.Flags().StringSliceVar(&schedulePlatforms, "platforms", nil, "platforms to publish on (default: all with variants)")
	_ = scheduleCmd.MarkFlagRequired("at")

	publishCmd.Flags().StringVar(&publishAt, "at", "", "schedule instead of publishing now")
}

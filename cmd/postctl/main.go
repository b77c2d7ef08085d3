// Package main provides postctl, the operator CLI for the post engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/app"
)

var (
	envFile string

	// engine is built by PersistentPreRunE for commands that need it.
	engine *app.App
	cfg    *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "postctl",
	Short: "postctl drives the post lifecycle from the command line",
	Long: `postctl reconciles, approves, schedules and publishes posts using the
same store and asset folders as the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: initEngine,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if engine != nil {
			engine.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(reconcileCmd, listCmd, tickCmd)
	rootCmd.AddCommand(approveCmd, scheduleCmd, postCmd, revertCmd, markPostedCmd, publishCmd, historyCmd)
	rootCmd.AddCommand(tokenCmd, secretCmd)
}

func initEngine(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env") {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	cfg = config.LoadConfig()

	if cmd.Annotations["engine"] == "none" {
		return nil
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	engine = a
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maheshrc27/contentpilot/pkg/utils"
)

var (
	tokenOperator string
	tokenTTL      time.Duration
	secretBytes   int
)

var tokenCmd = &cobra.Command{
	Use:         "token",
	Short:       "Issue a bearer token for the HTTP gateway",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"engine": "none"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SecretKey == "" {
			return errors.New("SECRET_KEY is not set")
		}
		token, err := utils.GenerateToken(cfg.SecretKey, tokenOperator, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

var secretCmd = &cobra.Command{
	Use:         "secret",
	Short:       "Print a random value for SECRET_KEY",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"engine": "none"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := utils.GenerateSecret(secretBytes)
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "cli", "operator name embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	secretCmd.Flags().IntVar(&secretBytes, "bytes", 32, "number of random bytes")
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/infra/client"
	"github.com/boddenberg/finml/internal/service"

	"github.com/spf13/cobra"
)

func healthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _ := flags.client()
			health, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), health)
		},
	}
}

func categorizeCmd(flags *globalFlags) *cobra.Command {
	var ofxPath string
	cmd := &cobra.Command{
		Use:   "categorize [description...]",
		Short: "Categorize expense descriptions",
		Example: `  finmlctl categorize "Dinner at the restaurant"
  finmlctl categorize --ofx statement.ofx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptions := args
			if ofxPath != "" {
				txns, err := readOFXFile(ofxPath)
				if err != nil {
					return err
				}
				descriptions = make([]string, len(txns))
				for i, tx := range txns {
					descriptions[i] = tx.Name
				}
			}
			if len(descriptions) == 0 {
				return errors.New("no descriptions given")
			}

			c, _ := flags.client()
			if len(descriptions) == 1 {
				res, err := c.Categorize(cmd.Context(), descriptions[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			results, err := c.CategorizeBatch(cmd.Context(), descriptions)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, res := range results {
				fmt.Fprintf(w, "%-24s %.3f  %s\n", res.Category, res.Confidence, descriptions[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ofxPath, "ofx", "", "categorize every transaction name of an OFX/QFX statement")
	return cmd
}

func forecastCmd(flags *globalFlags) *cobra.Command {
	var (
		file    string
		ofxPath string
		months  int
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast monthly spending from past expenses",
		Long: `Forecast monthly spending. History is read from a JSON array of
{"date","amount"} records (--file) or from the debits of an OFX/QFX
statement (--ofx).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var history []domain.HistoricalExpense
			switch {
			case file != "" && ofxPath != "":
				return errors.New("--file and --ofx are mutually exclusive")
			case file != "":
				if err := readJSONFile(file, &history); err != nil {
					return err
				}
			case ofxPath != "":
				txns, err := readOFXFile(ofxPath)
				if err != nil {
					return err
				}
				history = spendingHistory(txns)
			default:
				return errors.New("one of --file or --ofx is required")
			}

			c, _ := flags.client()
			result, err := c.Forecast(cmd.Context(), history, months)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with historical expenses")
	cmd.Flags().StringVar(&ofxPath, "ofx", "", "OFX/QFX statement to derive history from")
	cmd.Flags().IntVarP(&months, "months", "m", 0, "months to forecast (server default when 0)")
	return cmd
}

func retrainCmd(flags *globalFlags) *cobra.Command {
	var (
		file  string
		token string
	)
	cmd := &cobra.Command{
		Use:   "retrain",
		Short: "Send labelled examples to retrain the classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			var examples []domain.RetrainExample
			if err := readJSONFile(file, &examples); err != nil {
				return err
			}

			c, _ := flags.client(client.WithToken(token))
			res, err := c.Retrain(cmd.Context(), examples)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `JSON file with [{"description","category"}] examples`)
	cmd.Flags().StringVar(&token, "token", os.Getenv("FINML_TOKEN"), "bearer token for /retrain")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a retrain token signed with the server secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := service.NewRetrainAuth(secret)
			if auth == nil {
				return errors.New("--secret (or RETRAIN_JWT_SECRET) is required")
			}
			token, err := auth.IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("RETRAIN_JWT_SECRET"), "HMAC secret shared with the server")
	cmd.Flags().StringVar(&subject, "subject", "finmlctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func readJSONFile(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("parse %s: %w", strings.TrimSpace(path), err)
	}
	return nil
}

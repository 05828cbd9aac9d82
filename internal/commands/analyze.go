package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatali-fataliyev/spending_insights/api"
	"github.com/fatali-fataliyev/spending_insights/internal/config"
	"github.com/fatali-fataliyev/spending_insights/internal/insights"
	"github.com/fatali-fataliyev/spending_insights/logging"
	"github.com/spf13/cobra"
)

func newAnalyzeCommand() *cobra.Command {
	var file, userID, configPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a transaction batch from a JSON file and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.InOrStdin(), cmd.OutOrStdout(), file, userID, configPath)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "batch JSON file, - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&userID, "user", "", "user id, overrides the one in the file")
	cmd.Flags().StringVar(&configPath, "config", "", "analytics YAML config")

	return cmd
}

func runAnalyze(stdin io.Reader, out io.Writer, file, userID, configPath string) error {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("reading batch: %w", err)
	}

	fileUser, txs, err := api.DecodeBatch(data)
	if err != nil {
		return err
	}
	if userID == "" {
		userID = fileUser
	}
	if userID == "" {
		return fmt.Errorf("no user id: pass --user or set userId in the batch")
	}

	analytics := insights.DefaultConfig()
	if configPath != "" {
		if analytics, err = config.LoadAnalytics(configPath); err != nil {
			return err
		}
	}

	analyzer, err := insights.NewAnalyzer(analytics, nil, logging.Logger)
	if err != nil {
		return err
	}
	report, err := analyzer.Analyze(userID, txs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/psds-microservice/repair-desk/internal/repairclient"
	"github.com/psds-microservice/repair-desk/internal/spreadsheet"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Save all repair tickets to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Create a repair ticket for every row of an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var viewCmd = &cobra.Command{
	Use:   "view <file.xlsx>",
	Short: "Print an Excel workbook as a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, viewCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadClientConfig()
	if err != nil {
		return err
	}
	client := repairclient.NewClient(cfg.ServiceURL, cfg.RequestTimeout)
	repairs, err := client.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := spreadsheet.Export(f, repairs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	log.Info().Int("count", len(repairs)).Str("file", args[0]).Msg("export: ok")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadClientConfig()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer f.Close()
	rows, err := spreadsheet.Import(f)
	if err != nil {
		return err
	}
	client := repairclient.NewClient(cfg.ServiceURL, cfg.RequestTimeout)
	n, err := importRows(cmd.Context(), client, rows)
	log.Info().Int("created", n).Int("rows", len(rows)).Str("file", args[0]).Msg("import")
	return err
}

// importRows creates tickets in order and stops at the first failure.
func importRows(ctx context.Context, c *repairclient.Client, rows []model.RepairFields) (int, error) {
	for i, r := range rows {
		if _, err := c.Create(ctx, r); err != nil {
			return i, fmt.Errorf("import: record %d of %d: %w", i+1, len(rows), err)
		}
	}
	return len(rows), nil
}

func runView(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer f.Close()
	rows, err := spreadsheet.Read(f)
	if err != nil {
		return err
	}
	return spreadsheet.View(cmd.OutOrStdout(), rows)
}

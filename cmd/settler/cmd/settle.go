package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"order-settlement-service/cmd/settler/config"
	"order-settlement-service/internal/pipeline"
	"order-settlement-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the settle command
var (
	ordersFile       string
	transactionsFile string
	customersFile    string
	outputFormats    []string
	outputDir        string
	amountTolerance  float64
)

// settleCmd represents the settle command
var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Reconcile orders with processor settlements and assemble the payout dataset",
	Long: `Settle runs the full pipeline: it ingests the raw order export, the
payment-processor settlement file and (optionally) the customer table,
validates and repairs the order data, resolves incentive programs, reconciles
the two sides and assembles the settlement records.

Data-quality defects never fail the run; they are collected into the issue
log that ships with every output format.

Examples:
  # Console summary
  settler settle --orders orders.csv --transactions transactions.csv

  # Full finance workbook plus CSV exports
  settler settle --orders orders.csv --transactions txns.csv \
    --customers customers.csv --format xlsx,csv --output-dir ./out

  # Looser amount tolerance
  settler settle --orders orders.csv --transactions txns.csv --amount-tolerance 0.05`,

	PreRunE: validateSettleFlags,
	RunE:    runSettle,
}

func init() {
	rootCmd.AddCommand(settleCmd)

	// Required flags
	settleCmd.Flags().StringVarP(&ordersFile, "orders", "o", "", "path to the raw order export CSV (required)")
	settleCmd.Flags().StringVarP(&transactionsFile, "transactions", "t", "", "path to the processor settlement CSV (required)")

	// Optional input
	settleCmd.Flags().StringVarP(&customersFile, "customers", "c", "", "path to the customer table CSV")

	// Output flags
	settleCmd.Flags().StringSliceVarP(&outputFormats, "format", "f", []string{"console"}, "output formats: console, csv, json, xlsx")
	settleCmd.Flags().StringVar(&outputDir, "output-dir", ".", "directory for file outputs")

	// Matching configuration
	settleCmd.Flags().Float64Var(&amountTolerance, "amount-tolerance", 0.02, "absolute amount tolerance in currency units")

	settleCmd.MarkFlagRequired("orders")
	settleCmd.MarkFlagRequired("transactions")

	// Bind flags to viper
	viper.BindPFlag("orders", settleCmd.Flags().Lookup("orders"))
	viper.BindPFlag("transactions", settleCmd.Flags().Lookup("transactions"))
	viper.BindPFlag("customers", settleCmd.Flags().Lookup("customers"))
	viper.BindPFlag("format", settleCmd.Flags().Lookup("format"))
	viper.BindPFlag("output-dir", settleCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("amount-tolerance", settleCmd.Flags().Lookup("amount-tolerance"))
}

func validateSettleFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	ordersFile = viper.GetString("orders")
	transactionsFile = viper.GetString("transactions")
	customersFile = viper.GetString("customers")
	outputFormats = viper.GetStringSlice("format")
	outputDir = viper.GetString("output-dir")
	amountTolerance = viper.GetFloat64("amount-tolerance")

	if ordersFile == "" {
		return fmt.Errorf("orders file is required")
	}
	if transactionsFile == "" {
		return fmt.Errorf("transactions file is required")
	}

	if err := validateFileExists(ordersFile, "order export"); err != nil {
		return err
	}
	if err := validateFileExists(transactionsFile, "settlement file"); err != nil {
		return err
	}
	if customersFile != "" {
		if err := validateFileExists(customersFile, "customer table"); err != nil {
			return err
		}
	}

	if len(outputFormats) == 0 {
		return fmt.Errorf("at least one output format is required")
	}
	for _, f := range outputFormats {
		if _, err := reporter.ParseFormat(f); err != nil {
			return fmt.Errorf("%w. Valid formats: console, csv, json, xlsx", err)
		}
	}

	if amountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}

	if needsFileOutput(outputFormats) {
		if dir := filepath.Clean(outputDir); dir != "." {
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				return fmt.Errorf("output-dir is not a directory: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	f.Close()

	return nil
}

func needsFileOutput(formats []string) bool {
	for _, f := range formats {
		if format, err := reporter.ParseFormat(f); err == nil && format != reporter.FormatConsole {
			return true
		}
	}
	return false
}

func runSettle(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting settlement run...\n")
		fmt.Fprintf(os.Stderr, "Orders: %s\n", ordersFile)
		fmt.Fprintf(os.Stderr, "Transactions: %s\n", transactionsFile)
		if customersFile != "" {
			fmt.Fprintf(os.Stderr, "Customers: %s\n", customersFile)
		}
		fmt.Fprintf(os.Stderr, "Formats: %s\n", strings.Join(outputFormats, ", "))
	}

	opts := config.CreatePipelineOptions(ordersFile, transactionsFile, customersFile, amountTolerance)

	result, err := pipeline.New(opts).Run()
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	for _, f := range outputFormats {
		format, _ := reporter.ParseFormat(f)
		if err := writeOutput(format, result); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nSettlement run completed.\n")
		fmt.Fprintf(os.Stderr, "Assembled %d settlement records with %d issues.\n",
			len(result.Settlement.Records), len(result.Issues))
	}

	return nil
}

func writeOutput(format reporter.Format, result *pipeline.Result) error {
	switch format {
	case reporter.FormatConsole:
		return reporter.NewConsoleReporter(os.Stdout).Write(result)
	case reporter.FormatCSV:
		return reporter.NewCSVReporter(outputDir).Write(result)
	case reporter.FormatJSON:
		return reporter.NewJSONReporter(outputDir).Write(result)
	case reporter.FormatXLSX:
		return reporter.NewXLSXReporter(outputDir).Write(result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

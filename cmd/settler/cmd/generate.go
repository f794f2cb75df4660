package cmd

import (
	"fmt"
	"os"

	"order-settlement-service/internal/generator"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the generate command
var (
	genOutputDir     string
	genSeed          int64
	genCustomerCount int
	genOrderCount    int
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic export files for testing",
	Long: `Generate writes a deterministic set of synthetic exports: a customer
table, a raw order export carrying the defect classes the pipeline repairs
(duplicate rows, SKU spelling variants, dual tax formats, currency as text,
missing invoice numbers), and a processor settlement file including orphan
transactions.

The same seed always produces the same files.

Examples:
  settler generate --output-dir ./testdata
  settler generate --output-dir ./testdata --seed 7 --orders 500`,

	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "./testdata", "directory for the generated files")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 42, "random seed")
	generateCmd.Flags().IntVar(&genCustomerCount, "customers", 50, "number of customers")
	generateCmd.Flags().IntVar(&genOrderCount, "orders", 100, "number of orders")

	viper.BindPFlag("gen-output-dir", generateCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("gen-seed", generateCmd.Flags().Lookup("seed"))
}

func runGenerate(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	cfg := generator.DefaultConfig()
	cfg.Seed = genSeed
	cfg.CustomerCount = genCustomerCount
	cfg.OrderCount = genOrderCount

	files, err := generator.New(cfg).Generate(genOutputDir)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	fmt.Printf("Generated synthetic exports:\n")
	fmt.Printf("  %s\n", files.Customers)
	fmt.Printf("  %s\n", files.Orders)
	fmt.Printf("  %s\n", files.Transactions)

	return nil
}

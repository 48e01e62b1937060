package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/muniset/internal/config"
	"github.com/muniset/internal/pipeline"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "muniset",
		Short: "Municipal dataset cleaning and join pipeline",
		Long:  `Cleans the crime, contact-center and household-income datasets and joins them into one analysis-ready table keyed by municipality and postal code`,
	}

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createCrimeCmd())
	rootCmd.AddCommand(createContactCmd())
	rootCmd.AddCommand(createIncomeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// buildConfig assembles the run configuration from the environment. CSV
// layout defaults match the upstream published files.
func buildConfig() pipeline.Config {
	sep := config.GetEnvRune("CSV_SEP", ';')
	return pipeline.Config{
		Crime: pipeline.SourceConfig{
			Path:       config.GetEnv(config.EnvCrimeFile, ""),
			Sep:        sep,
			Encoding:   config.GetEnv("DELITOS_ENCODING", "latin1"),
			SkipHeader: config.GetEnvInt("DELITOS_SKIPROWS", 5),
			SkipFooter: config.GetEnvInt("DELITOS_SKIPFOOTER", 7),
		},
		Contact: pipeline.SourceConfig{
			Path:     config.GetEnv(config.EnvContactFile, ""),
			Sep:      sep,
			Encoding: config.GetEnv("CONTACT_ENCODING", "utf-8"),
		},
		Income: pipeline.SourceConfig{
			Path:       config.GetEnv(config.EnvIncomeFile, ""),
			Sep:        sep,
			Encoding:   config.GetEnv("RENTA_ENCODING", "utf-8-sig"),
			SkipHeader: config.GetEnvInt("RENTA_SKIPROWS", 0),
			SkipFooter: config.GetEnvInt("RENTA_SKIPFOOTER", 0),
		},
		Logger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func createRunCmd() *cobra.Command {
	var output string
	var outputSep string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline and join the three datasets",
		Run: func(cmd *cobra.Command, args []string) {
			runner := pipeline.NewRunner(buildConfig())
			result, err := runner.Run(context.Background())
			if err != nil {
				log.Fatalf("Pipeline run failed: %v", err)
			}

			fmt.Printf("Joined table: %d rows, %d columns\n",
				len(result.Joined.Rows), len(result.Joined.Columns))

			if output != "" {
				sep := ';'
				if outputSep != "" {
					sep = []rune(outputSep)[0]
				}
				if err := pipeline.Export(result.Joined, output, sep); err != nil {
					log.Fatalf("Export failed: %v", err)
				}
				fmt.Printf("Wrote %s\n", output)
			}
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Write the joined table to this CSV file")
	cmd.Flags().StringVar(&outputSep, "output-sep", ";", "Separator for the exported CSV")

	return cmd
}

func createCrimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crime [filename]",
		Short: "Normalize the crime dataset and print a summary",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := buildConfig()
			if len(args) == 1 {
				cfg.Crime.Path = args[0]
			}
			runner := pipeline.NewRunner(cfg)
			tbl, err := runner.LoadCrime()
			if err != nil {
				log.Fatalf("Crime pipeline failed: %v", err)
			}
			fmt.Printf("Crime table: %d municipalities, %d columns\n",
				len(tbl.Records), len(tbl.Columns))
		},
	}
}

func createContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact [filename]",
		Short: "Aggregate the contact-center dataset and print a summary",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := buildConfig()
			if len(args) == 1 {
				cfg.Contact.Path = args[0]
			}
			runner := pipeline.NewRunner(cfg)
			res, err := runner.LoadContact()
			if err != nil {
				log.Fatalf("Contact pipeline failed: %v", err)
			}
			fmt.Printf("Contact aggregate: %d postal codes, %d funnel responses\n",
				len(res.Rows), len(res.Questions))
		},
	}
}

func createIncomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "income [filename]",
		Short: "Clean and impute the income dataset and print a summary",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := buildConfig()
			if len(args) == 1 {
				cfg.Income.Path = args[0]
			}
			runner := pipeline.NewRunner(cfg)
			aggs, err := runner.LoadIncome()
			if err != nil {
				log.Fatalf("Income pipeline failed: %v", err)
			}
			fmt.Printf("Income aggregate: %d (municipality, postal code, period) groups\n", len(aggs))
		},
	}
}

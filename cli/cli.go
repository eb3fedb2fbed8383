package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"conduitqa/conduit"
	"conduitqa/config"
	"conduitqa/database"
	"conduitqa/reporter"
	"conduitqa/suites"
	"conduitqa/testrail"
)

var errRunFailed = errors.New("run finished with failures")

// lookupEnv is replaced in tests.
var lookupEnv = os.LookupEnv

var (
	envFile      string
	settingsFile string
)

var rootCommand = &cobra.Command{
	Use:           "conduitqa",
	Short:         "Conduit API test suite with TestRail synchronization",
	Long:          "Runs the Conduit API scenarios against the configured environment and reports results to TestRail when TESTRAIL_ENABLED=TRUE.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runFlags struct {
	grep    string
	workers int
	retries int
	timeout time.Duration
	report  string
	xlsx    string
}

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Runs the Conduit API suite",
	Long:  "Runs setup, the selected scenarios and teardown, writes the JSON report and prints a summary. Exits non-zero when a scenario or a TestRail update failed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := reporter.Options{
			Grep:       runFlags.grep,
			Workers:    cfg.Workers,
			Retries:    cfg.Retries,
			Timeout:    runFlags.timeout,
			ReportPath: runFlags.report,
			XLSXPath:   runFlags.xlsx,
			Project:    cfg.TestRail.Project,
		}
		if cmd.Flags().Changed("workers") {
			opts.Workers = runFlags.workers
		}
		if cmd.Flags().Changed("retries") {
			opts.Retries = runFlags.retries
		}
		if cfg.TestRail.Enabled {
			sync, err := newSync(cfg)
			if err != nil {
				return err
			}
			opts.TestRail = sync
			opts.CreateRun = strings.TrimSpace(cfg.TestRail.RunID) == ""
			opts.SkipPassed = cfg.TestRail.UpdateRun
		}

		runner, err := reporter.NewRunner(opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		suite := suites.Conduit(suites.Deps{
			Clients:  conduit.NewClients(cfg.Settings.APIURLs.Conduit),
			Password: cfg.ConduitPassword,
		})
		log.Printf("cli.run: starting environment=%s conduit_url=%s", cfg.Environment, cfg.Settings.APIURLs.Conduit)
		rep, err := runner.Run(ctx, suite)
		reporter.PrintSummary(cmd.OutOrStdout(), rep)
		if err != nil {
			return err
		}
		if rep.Failed() {
			return errRunFailed
		}
		return nil
	},
}

var testrailCommand = &cobra.Command{
	Use:   "testrail",
	Short: "TestRail run maintenance",
}

var addRunFlags struct {
	project string
	filter  string
}

var addRunCommand = &cobra.Command{
	Use:   "add-run",
	Short: "Creates a TestRail run and prints its id",
	Long:  "Creates a run in the project's suite holding the cases selected by the filter condition. Defaults come from TESTRAIL_PROJECT and TESTRAIL_CASES_FILTER.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sync, err := newSync(cfg)
		if err != nil {
			return err
		}
		var cond *testrail.CaseFilterCondition
		if addRunFlags.filter != "" {
			c, err := testrail.ParseCaseFilterCondition(addRunFlags.filter)
			if err != nil {
				return err
			}
			cond = &c
		}
		runID, err := sync.AddTestRun(cmd.Context(), addRunFlags.project, cond)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), runID)
		return nil
	},
}

var shouldSkipFlags struct {
	title string
	runID int
}

var shouldSkipCommand = &cobra.Command{
	Use:   "should-skip",
	Short: "Prints true when a case in the title already passed in the run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sync, err := newSync(cfg)
		if err != nil {
			return err
		}
		skip, err := sync.ShouldSkipTestExecution(cmd.Context(), shouldSkipFlags.title, shouldSkipFlags.runID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(skip))
		return nil
	},
}

var addResultFlags struct {
	title    string
	status   string
	runID    int
	duration time.Duration
	retry    int
	url      string
	project  string
	errors   []string
}

var addResultCommand = &cobra.Command{
	Use:   "add-result",
	Short: "Records a result for every case id in the title",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sync, err := newSync(cfg)
		if err != nil {
			return err
		}
		project := strings.TrimSpace(addResultFlags.project)
		if project == "" {
			project = cfg.TestRail.Project
		}
		info := testrail.TestInfo{
			Title:    addResultFlags.title,
			Status:   testrail.TestStatus(addResultFlags.status),
			Retry:    addResultFlags.retry,
			Project:  project,
			Duration: addResultFlags.duration,
			Errors:   addResultFlags.errors,
			LastURL:  addResultFlags.url,
		}
		if err := sync.AddTestResult(cmd.Context(), info, addResultFlags.runID); err != nil {
			return err
		}
		log.Printf("cli.add_result: completed title=%q", info.Title)
		return nil
	},
}

var dbCommand = &cobra.Command{
	Use:   "db",
	Short: "Database helpers",
}

var dbCheckCommand = &cobra.Command{
	Use:   "check [Admin|Conduit]",
	Short: "Checks that the database of the current environment is reachable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := database.ParseName(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resolver := database.NewResolver(cfg)
		server, err := resolver.ServerName(name)
		if err != nil {
			return err
		}
		if _, err := database.ExecuteQuery(cmd.Context(), resolver, name, database.Ping()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s on %s is reachable\n", name, server)
		return nil
	},
}

func init() {
	rootCommand.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with the suite variables")
	rootCommand.PersistentFlags().StringVar(&settingsFile, "settings", "", "YAML file overriding the built-in environment settings")

	runCommand.Flags().StringVar(&runFlags.grep, "grep", "", "only run scenarios whose title and tags match this regexp")
	runCommand.Flags().IntVar(&runFlags.workers, "workers", config.DefaultWorkers, "parallel scenarios (default WORKERS)")
	runCommand.Flags().IntVar(&runFlags.retries, "retries", config.DefaultRetries, "retries of a failed scenario (default RETRIES)")
	runCommand.Flags().DurationVar(&runFlags.timeout, "timeout", reporter.DefaultTimeout, "timeout of one scenario attempt")
	runCommand.Flags().StringVar(&runFlags.report, "report", reporter.DefaultReportPath, "JSON report path")
	runCommand.Flags().StringVar(&runFlags.xlsx, "xlsx", "", "also write the report as a spreadsheet")

	addRunCommand.Flags().StringVar(&addRunFlags.project, "project", "", "project key (default TESTRAIL_PROJECT)")
	addRunCommand.Flags().StringVar(&addRunFlags.filter, "filter", "", "case filter number or name (default TESTRAIL_CASES_FILTER)")

	shouldSkipCommand.Flags().StringVar(&shouldSkipFlags.title, "title", "", "test title holding @C<id> tags")
	shouldSkipCommand.Flags().IntVar(&shouldSkipFlags.runID, "run-id", 0, "run id (default TESTRAIL_TEST_RUN_ID)")
	_ = shouldSkipCommand.MarkFlagRequired("title")

	addResultCommand.Flags().StringVar(&addResultFlags.title, "title", "", "test title holding @C<id> tags")
	addResultCommand.Flags().StringVar(&addResultFlags.status, "status", "", "passed | failed | timedOut | interrupted | skipped")
	addResultCommand.Flags().IntVar(&addResultFlags.runID, "run-id", 0, "run id (default TESTRAIL_TEST_RUN_ID)")
	addResultCommand.Flags().DurationVar(&addResultFlags.duration, "duration", 0, "test duration")
	addResultCommand.Flags().IntVar(&addResultFlags.retry, "retry", 0, "zero based attempt index")
	addResultCommand.Flags().StringVar(&addResultFlags.url, "url", "", "most recent URL")
	addResultCommand.Flags().StringVar(&addResultFlags.project, "project", "", "project name shown in the comment (default TESTRAIL_PROJECT)")
	addResultCommand.Flags().StringArrayVar(&addResultFlags.errors, "error", nil, "error message, repeatable")
	_ = addResultCommand.MarkFlagRequired("title")
	_ = addResultCommand.MarkFlagRequired("status")

	testrailCommand.AddCommand(addRunCommand, shouldSkipCommand, addResultCommand)
	dbCommand.AddCommand(dbCheckCommand)
	rootCommand.AddCommand(runCommand, testrailCommand, dbCommand)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.Options{EnvFile: envFile, SettingsFile: settingsFile, Lookup: lookupEnv})
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newSync(cfg config.Config) (*testrail.Sync, error) {
	client, err := testrail.NewClient(cfg.TestRail)
	if err != nil {
		return nil, err
	}
	return testrail.NewSync(client, cfg.TestRail, cfg.Environment), nil
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	log.Printf("cli.execute: running root command")
	if err := rootCommand.ExecuteContext(context.Background()); err != nil {
		log.Printf("cli.execute: root command failed error=%v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("cli.execute: root command completed")
}

// Package config resolves the run configuration once at start-up. Nothing else in the module
// reads the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultWorkers         = 4
	DefaultRetries         = 1
	DefaultTestRailBaseURL = "https://apptestrail"
)

type Credentials struct {
	Username string
	Password string
}

// TestRail holds the raw TestRail variables. Run id, project and filter are validated by
// the sync workflow so their errors can list the valid values.
type TestRail struct {
	BaseURL     string
	Username    string
	Password    string
	Enabled     bool
	RunID       string
	Project     string
	CasesFilter string
	RunName     string
	UpdateRun   bool
}

type Config struct {
	Environment     Environment
	Settings        Settings
	Workers         int
	Retries         int
	ConduitPassword string
	TestRail        TestRail
	DatabaseAdmin   Credentials
	DatabaseConduit Credentials
}

type Options struct {
	// EnvFile is a dotenv file. A missing file is not an error.
	EnvFile string
	// SettingsFile is an optional YAML file overriding the built-in environment settings.
	SettingsFile string
	// Lookup replaces os.LookupEnv, mostly for tests.
	Lookup func(string) (string, bool)
}

// Load builds the configuration. Process variables win over the dotenv file.
func Load(opts Options) (Config, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fileVars := map[string]string{}
	if opts.EnvFile != "" {
		vars, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			fileVars = vars
			log.Printf("config.load: env file loaded path=%s vars=%d", opts.EnvFile, len(vars))
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("config.load: env file not found path=%s", opts.EnvFile)
		default:
			return Config{}, fmt.Errorf("read env file %q: %w", opts.EnvFile, err)
		}
	}

	get := func(key string) string {
		if v, ok := lookup(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileVars[key])
	}

	env, err := ParseEnvironment(get("ENVIRONMENT"))
	if err != nil {
		return Config{}, err
	}

	settings := builtinSettings(env)
	if opts.SettingsFile != "" {
		if settings, err = loadSettingsFile(opts.SettingsFile, env, settings); err != nil {
			return Config{}, err
		}
	}
	settings.APIURLs.Conduit = apiRoot(settings.APIURLs.Conduit)
	settings.APIURLs.Admin = apiRoot(settings.APIURLs.Admin)

	retries, err := intOrDefault(get("RETRIES"), DefaultRetries, 0)
	if err != nil {
		return Config{}, fmt.Errorf("RETRIES: %w", err)
	}

	testRailURL := get("TESTRAIL_BASE_URL")
	if testRailURL == "" {
		testRailURL = DefaultTestRailBaseURL
	}

	cfg := Config{
		Environment:     env,
		Settings:        settings,
		Workers:         workersOrDefault(get("WORKERS")),
		Retries:         retries,
		ConduitPassword: get("CONDUIT_PASSWORD"),
		TestRail: TestRail{
			BaseURL:     testRailURL,
			Username:    get("TESTRAIL_USERNAME"),
			Password:    get("TESTRAIL_PASSWORD"),
			Enabled:     get("TESTRAIL_ENABLED") == "TRUE",
			RunID:       get("TESTRAIL_TEST_RUN_ID"),
			Project:     get("TESTRAIL_PROJECT"),
			CasesFilter: get("TESTRAIL_CASES_FILTER"),
			RunName:     get("TESTRAIL_RUN_NAME"),
			UpdateRun:   get("TESTRAIL_UPDATE_RUN") == "TRUE",
		},
		DatabaseAdmin:   Credentials{Username: get("DATABASE_ADMIN_USERNAME"), Password: get("DATABASE_ADMIN_PASSWORD")},
		DatabaseConduit: Credentials{Username: get("DATABASE_CONDUIT_USERNAME"), Password: get("DATABASE_CONDUIT_PASSWORD")},
	}
	log.Printf("config.load: resolved environment=%s workers=%d retries=%d testrail_enabled=%t", cfg.Environment, cfg.Workers, cfg.Retries, cfg.TestRail.Enabled)
	return cfg, nil
}

// workersOrDefault falls back to the default for anything that is not a positive number.
func workersOrDefault(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return DefaultWorkers
	}
	return n
}

func intOrDefault(s string, fallback, min int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n < min {
		return 0, fmt.Errorf("must be >= %d, got %d", min, n)
	}
	return n, nil
}

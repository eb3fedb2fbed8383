package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Environment string

const (
	QA    Environment = "QA"
	Stage Environment = "Stage"
	Prod  Environment = "Prod"
)

var environments = []Environment{QA, Stage, Prod}

// ParseEnvironment accepts QA, Stage or Prod. An empty value means QA.
func ParseEnvironment(s string) (Environment, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return QA, nil
	}
	for _, e := range environments {
		if string(e) == s {
			return e, nil
		}
	}
	names := make([]string, len(environments))
	for i, e := range environments {
		names[i] = string(e)
	}
	return "", fmt.Errorf("invalid ENVIRONMENT %q, must be one of: %s", s, strings.Join(names, " | "))
}

func (e Environment) String() string { return string(e) }

type URLs struct {
	Conduit string `yaml:"conduit"`
	Admin   string `yaml:"admin"`
}

// Settings are the per-environment endpoints.
type Settings struct {
	UIURLs  URLs `yaml:"ui_urls"`
	APIURLs URLs `yaml:"api_urls"`
	// Databases maps a database name (Admin, Conduit) to its SQL Server instance.
	Databases map[string]string `yaml:"databases"`
}

func builtinSettings(env Environment) Settings {
	switch env {
	case Stage:
		return Settings{
			UIURLs: URLs{Conduit: "https://conduit.stage.bondaracademy.com", Admin: "https://admin.stage.bondaracademy.com"},
			APIURLs: URLs{
				Conduit: "https://conduit-api.stage.bondaracademy.com/api",
				Admin:   "https://admin-api.stage.bondaracademy.com/api",
			},
			Databases: map[string]string{"Admin": "Stage_SQL01", "Conduit": "Stage_SQL02"},
		}
	case Prod:
		return Settings{
			UIURLs: URLs{Conduit: "https://conduit.prod.bondaracademy.com", Admin: "https://admin.prod.bondaracademy.com"},
			APIURLs: URLs{
				Conduit: "https://conduit-api.prod.bondaracademy.com/api",
				Admin:   "https://admin-api.prod.bondaracademy.com/api",
			},
			Databases: map[string]string{},
		}
	default:
		return Settings{
			UIURLs: URLs{Conduit: "https://conduit.bondaracademy.com", Admin: "https://admin.bondaracademy.com"},
			APIURLs: URLs{
				Conduit: "https://conduit-api.bondaracademy.com",
				Admin:   "https://admin-api.bondaracademy.com/api",
			},
			Databases: map[string]string{"Admin": "QA_SQL07", "Conduit": "QA_SQL08"},
		}
	}
}

// loadSettingsFile reads a YAML document keyed by environment name and overlays the
// entry for env on base. Empty fields keep the base value.
func loadSettingsFile(path string, env Environment, base Settings) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read settings file %q: %w", path, err)
	}
	var doc map[string]Settings
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return base, fmt.Errorf("parse settings file %q: %w", path, err)
	}
	override, ok := doc[string(env)]
	if !ok {
		return base, nil
	}
	base.UIURLs = mergeURLs(base.UIURLs, override.UIURLs)
	base.APIURLs = mergeURLs(base.APIURLs, override.APIURLs)
	if len(override.Databases) > 0 {
		merged := make(map[string]string, len(base.Databases)+len(override.Databases))
		for k, v := range base.Databases {
			merged[k] = v
		}
		for k, v := range override.Databases {
			merged[k] = v
		}
		base.Databases = merged
	}
	return base, nil
}

func mergeURLs(base, override URLs) URLs {
	if override.Conduit != "" {
		base.Conduit = override.Conduit
	}
	if override.Admin != "" {
		base.Admin = override.Admin
	}
	return base
}

// apiRoot strips a trailing "/api"; services add the full "/api/..." path themselves.
func apiRoot(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	return strings.TrimSuffix(u, "/api")
}

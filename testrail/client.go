// Package testrail talks to the TestRail API and keeps a run in sync with executed tests.
package testrail

import (
	"strings"

	"conduitqa/config"
	"conduitqa/restclient"
)

// apiRoot prefixes every endpoint. TestRail routes through the query string.
const apiRoot = "index.php?/api/v2"

// NewClient returns a basic-auth client for the configured TestRail instance.
func NewClient(cfg config.TestRail, opts ...restclient.Option) (*restclient.Client, error) {
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, &ConfigError{
			Setting: "TESTRAIL_USERNAME/TESTRAIL_PASSWORD",
			Reason:  "the environment variables TESTRAIL_USERNAME and TESTRAIL_PASSWORD are required",
		}
	}
	return restclient.CreateClientWithBaseAuth(cfg.BaseURL, restclient.BasicCredentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}, opts...)
}

// Package suites declares the Conduit API scenarios run by the conduitqa command.
package suites

import (
	"conduitqa/conduit"
	"conduitqa/reporter"
)

const regression = "@regression"

// Deps are shared by every Conduit scenario.
type Deps struct {
	Clients *conduit.Clients
	// Password is used by the fixed test users and by generated users.
	Password string
}

func (d Deps) users() map[string]conduit.UserCredentials {
	return conduit.TestUsers(d.Password)
}

// Conduit returns the full Conduit suite: user setup, API scenarios and article cleanup.
func Conduit(d Deps) reporter.Suite {
	var scenarios []reporter.Scenario
	scenarios = append(scenarios, articleScenarios(d)...)
	scenarios = append(scenarios, userScenarios(d)...)
	return reporter.Suite{
		Setup:     []reporter.Scenario{createUsers(d)},
		Scenarios: scenarios,
		Teardown:  []reporter.Scenario{deleteData(d)},
	}
}

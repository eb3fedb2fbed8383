package suites

import (
	"log"

	"conduitqa/apilog"
	"conduitqa/conduit"
	"conduitqa/reporter"
)

// createUsers registers the fixed users. A user that already exists is not a failure.
func createUsers(d Deps) reporter.Scenario {
	return reporter.Scenario{
		Title:     "Create users",
		TitlePath: []string{"setup/conduit.go"},
		Run: func(t *reporter.T) {
			users := d.users()
			for _, key := range conduit.UserKeys {
				creds := users[key]
				t.Step("Create user if not exist", func() {
					client, err := d.Clients.Get(t.Context(), nil)
					t.NoError(err)
					t.SetURL(client.BaseURL() + "/api/users")

					_, err = conduit.PostUser[conduit.UserResponse](t.Context(), client, conduit.UserRequest{User: creds}, apilog.Quiet())
					if err != nil {
						log.Printf("suites.setup: user already created email=%s error=%v", creds.Email, err)
						return
					}
					log.Printf("suites.setup: user created email=%s", creds.Email)
				})
			}
		},
	}
}

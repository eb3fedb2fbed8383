package suites

import (
	"github.com/stretchr/testify/assert"

	"conduitqa/apilog"
	"conduitqa/conduit"
	"conduitqa/reporter"
)

var usersPath = []string{"conduit/api/users.go", "POST users"}

func userScenarios(d Deps) []reporter.Scenario {
	return []reporter.Scenario{
		{
			Title:     "201 Created - with all required properties @C123",
			TitlePath: usersPath,
			Run: func(t *reporter.T) {
				client, err := d.Clients.Get(t.Context(), nil)
				t.NoError(err)
				request := conduit.NewUserRequest(nil, d.Password)
				expected := conduit.ExpectedUserResponse(request.User)

				var actual conduit.UserResponse
				t.Step("Successful user creation", func() {
					t.SetURL(client.BaseURL() + "/api/users")
					actual, err = conduit.PostUser[conduit.UserResponse](t.Context(), client, request)
					t.NoError(err)
				})
				t.Step("Assert user response 201", func() {
					reporter.MatchObject(t, expected, actual)
				})
			},
		},
		{
			Title:     "422 Unprocessable - with existing username and password @C4545",
			TitlePath: usersPath,
			Tags:      []string{regression},
			Run: func(t *reporter.T) {
				creds := d.users()["uk"]
				client, err := d.Clients.Get(t.Context(), nil)
				t.NoError(err)
				request := conduit.NewUserRequest(&creds, d.Password)

				var actual conduit.ErrorResponse
				t.Step("Unsuccessful user creation", func() {
					t.SetURL(client.BaseURL() + "/api/users")
					actual, err = conduit.PostUser[conduit.ErrorResponse](t.Context(), client, request, apilog.ExpectStatus(apilog.StatusUnprocessable))
					t.NoError(err)
				})
				t.Step("Assert user response 422", func() {
					assert.Equal(t, conduit.ExpectedTakenError(), actual)
				})
			},
		},
	}
}

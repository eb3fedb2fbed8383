package suites

import (
	"conduitqa/conduit"
	"conduitqa/reporter"
)

func articleScenarios(d Deps) []reporter.Scenario {
	data := []struct {
		user  string
		title string
	}{
		{user: "uk", title: "UK @C1111"},
		{user: "us", title: "US @C2222"},
	}

	scenarios := make([]reporter.Scenario, 0, len(data))
	for _, td := range data {
		scenarios = append(scenarios, reporter.Scenario{
			Title:     "201 Created - with all required properties " + td.title,
			TitlePath: []string{"conduit/api/articles.go", "POST article"},
			Tags:      []string{regression},
			Run: func(t *reporter.T) {
				creds := d.users()[td.user]
				client, err := d.Clients.Get(t.Context(), &creds)
				t.NoError(err)
				service := conduit.NewArticleService(client)
				request := conduit.NewArticleRequest("")
				expected := conduit.ExpectedArticleResponse(request, creds)

				var actual conduit.ArticleResponse
				t.Step("Successful article creation", func() {
					t.SetURL(client.BaseURL() + "/api/articles/")
					actual, err = service.PostArticle(t.Context(), request)
					t.NoError(err)
				})
				t.Step("Assert article response 201", func() {
					reporter.MatchObject(t, expected, actual)
				})
			},
		})
	}
	return scenarios
}

package suites

import (
	"strings"

	"conduitqa/conduit"
	"conduitqa/reporter"
)

// deleteData removes every article the suite created for the fixed users.
func deleteData(d Deps) reporter.Scenario {
	return reporter.Scenario{
		Title:     "Delete data",
		TitlePath: []string{"teardown/conduit.go"},
		Run: func(t *reporter.T) {
			users := d.users()
			for _, key := range conduit.UserKeys {
				creds := users[key]
				client, err := d.Clients.Get(t.Context(), &creds)
				t.NoError(err)
				service := conduit.NewArticleService(client)

				var articles conduit.ArticlesResponse
				t.Step("Get all articles", func() {
					t.SetURL(client.BaseURL() + "/api/articles")
					articles, err = service.GetArticlesByAuthor(t.Context(), creds.Username)
					t.NoError(err)
				})
				t.Step("Delete all articles with title "+conduit.ArticleTitlePrefix, func() {
					for _, a := range articles.Articles {
						if strings.Contains(a.Title, conduit.ArticleTitlePrefix) {
							t.NoError(service.DeleteArticle(t.Context(), a.Slug), "delete article %s", a.Slug)
						}
					}
				})
			}
		},
	}
}

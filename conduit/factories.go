package conduit

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ArticleTitlePrefix marks articles created by the suite so teardown can find them.
const ArticleTitlePrefix = "Automation Article"

const takenMessage = "has already been taken"

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// NewUserRequest builds a registration payload. Missing fields of creds are generated,
// the password falls back to password.
func NewUserRequest(creds *UserCredentials, password string) UserRequest {
	var c UserCredentials
	if creds != nil {
		c = *creds
	}
	if c.Username == "" {
		c.Username = "user" + randomSuffix()
	}
	if c.Email == "" {
		c.Email = strings.ToLower(c.Username) + "@test.com"
	}
	if c.Password == "" {
		c.Password = password
	}
	return UserRequest{User: c}
}

// ExpectedUserResponse is the partial body a successful registration returns.
func ExpectedUserResponse(creds UserCredentials) UserResponse {
	return UserResponse{User: User{Email: creds.Email, Username: creds.Username}}
}

// ExpectedTakenError is the 422 body for a duplicate email and username.
func ExpectedTakenError() ErrorResponse {
	return ErrorResponse{Errors: map[string][]string{
		"email":    {takenMessage},
		"username": {takenMessage},
	}}
}

// NewArticleRequest builds an article payload; an empty title gets a unique one.
func NewArticleRequest(title string) ArticleRequest {
	if title == "" {
		title = fmt.Sprintf("%s %s", ArticleTitlePrefix, randomSuffix())
	}
	return ArticleRequest{Article: Article{
		Title:       title,
		Description: "Test description",
		Body:        "Test body",
		TagList:     []string{"Test tag"},
	}}
}

// ExpectedArticleResponse is the partial body returned when creds creates request.
func ExpectedArticleResponse(request ArticleRequest, creds UserCredentials) ArticleResponse {
	a := request.Article
	return ArticleResponse{Article: ArticleData{
		Article: Article{
			Title:       a.Title,
			Description: a.Description,
			Body:        a.Body,
			TagList:     append([]string(nil), a.TagList...),
		},
		Author: &Author{Username: creds.Username},
	}}
}

package conduit

// UserCredentials identify a test user. Username is optional for login.
type UserCredentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type UserRequest struct {
	User UserCredentials `json:"user"`
}

type User struct {
	ID       int    `json:"id,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Bio      any    `json:"bio,omitempty"`
	Image    string `json:"image,omitempty"`
	Token    string `json:"token,omitempty"`
}

type UserResponse struct {
	User User `json:"user"`
}

// ErrorResponse is the 422 body, field name to messages.
type ErrorResponse struct {
	Errors map[string][]string `json:"errors"`
}

type Article struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Body        string   `json:"body,omitempty"`
	TagList     []string `json:"tagList,omitempty"`
}

type ArticleRequest struct {
	Article Article `json:"article"`
}

type Author struct {
	Username  string `json:"username,omitempty"`
	Bio       any    `json:"bio,omitempty"`
	Image     string `json:"image,omitempty"`
	Following bool   `json:"following,omitempty"`
}

type ArticleData struct {
	Article
	Slug           string  `json:"slug,omitempty"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
	Favorited      bool    `json:"favorited,omitempty"`
	FavoritesCount int     `json:"favoritesCount,omitempty"`
	Author         *Author `json:"author,omitempty"`
}

type ArticleResponse struct {
	Article ArticleData `json:"article"`
}

type ArticlesResponse struct {
	Articles      []ArticleData `json:"articles"`
	ArticlesCount int           `json:"articlesCount"`
}

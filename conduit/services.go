// Package conduit holds the Conduit API services, request factories and test users.
package conduit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"conduitqa/apilog"
	"conduitqa/restclient"
)

const (
	loginPath    = "/api/users/login"
	usersPath    = "/api/users"
	articlesPath = "/api/articles"
)

// send executes req and decodes the verified body into T.
func send[T any](ctx context.Context, req *restclient.Request, method string, payload any, defaultStatus int, opts []apilog.Option) (T, error) {
	resp, err := do(ctx, req, method)
	if err != nil {
		var zero T
		return zero, err
	}
	defer resp.Close()
	return apilog.VerifyJSON[T](resp, defaultStatus, payload, opts...)
}

func do(ctx context.Context, req *restclient.Request, method string) (*restclient.Response, error) {
	switch method {
	case http.MethodGet:
		return req.Get(ctx)
	case http.MethodPost:
		return req.Post(ctx)
	case http.MethodPut:
		return req.Put(ctx)
	case http.MethodPatch:
		return req.Patch(ctx)
	case http.MethodDelete:
		return req.Delete(ctx)
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
}

// PostLogin logs a user in. Expects 200 unless overridden.
func PostLogin[T any](ctx context.Context, client restclient.Builder, request UserRequest, opts ...apilog.Option) (T, error) {
	req := client.WithURL(loginPath).WithBody(request)
	return send[T](ctx, req, http.MethodPost, request, apilog.StatusOK, opts)
}

// PostUser registers a user. Expects 201 unless overridden; pass apilog.Quiet() for
// create-if-missing flows.
func PostUser[T any](ctx context.Context, client restclient.Builder, request UserRequest, opts ...apilog.Option) (T, error) {
	req := client.WithURL(usersPath).WithBody(request)
	return send[T](ctx, req, http.MethodPost, request, apilog.StatusCreated, opts)
}

type ArticleService struct {
	client restclient.Builder
}

func NewArticleService(client restclient.Builder) *ArticleService {
	return &ArticleService{client: client}
}

func (s *ArticleService) PostArticle(ctx context.Context, request ArticleRequest, opts ...apilog.Option) (ArticleResponse, error) {
	req := s.client.WithURL(articlesPath + "/").WithBody(request)
	return send[ArticleResponse](ctx, req, http.MethodPost, request, apilog.StatusCreated, opts)
}

func (s *ArticleService) GetArticle(ctx context.Context, slug string, opts ...apilog.Option) (ArticleResponse, error) {
	req := s.client.WithURL(articlesPath + "/" + url.PathEscape(slug))
	return send[ArticleResponse](ctx, req, http.MethodGet, nil, apilog.StatusOK, opts)
}

// DeleteArticle removes an article. The 204 body is empty so nothing is decoded.
func (s *ArticleService) DeleteArticle(ctx context.Context, slug string, opts ...apilog.Option) error {
	resp, err := s.client.WithURL(articlesPath + "/" + url.PathEscape(slug)).Delete(ctx)
	if err != nil {
		return err
	}
	defer resp.Close()
	if err := apilog.Verify(resp, apilog.StatusNoContent, nil, opts...); err != nil {
		return err
	}
	log.Printf("conduit.delete_article: deleted slug=%s", slug)
	return nil
}

func (s *ArticleService) GetAllArticles(ctx context.Context, opts ...apilog.Option) (ArticlesResponse, error) {
	req := s.client.WithURL(articlesPath)
	return send[ArticlesResponse](ctx, req, http.MethodGet, nil, apilog.StatusOK, opts)
}

// GetArticlesByAuthor lists the articles written by username.
func (s *ArticleService) GetArticlesByAuthor(ctx context.Context, username string, opts ...apilog.Option) (ArticlesResponse, error) {
	req := s.client.WithURL(articlesPath).WithParams(map[string]any{"author": username})
	return send[ArticlesResponse](ctx, req, http.MethodGet, nil, apilog.StatusOK, opts)
}

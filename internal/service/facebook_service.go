package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/postpub/configs"
	"github.com/maheshrc27/postpub/internal/models"
	"github.com/maheshrc27/postpub/internal/repository"
	"github.com/maheshrc27/postpub/internal/transfer"
	"github.com/maheshrc27/postpub/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// defaultPageID lets a page access token publish without knowing the page id.
const defaultPageID = "me"

type FacebookService interface {
	AuthURL(state string) string
	FacebookCallback(ctx context.Context, code string) (*models.Account, error)
	AccountInfo(ctx context.Context) (*transfer.AccountInfo, error)
	PublishURL(ctx context.Context, imageURL, caption string) (string, error)
	PublishPhoto(ctx context.Context, publishURL string) (string, error)
}

type facebookService struct {
	cfg    config.Facebook
	secret string
	pr     repository.PostRepository
	oauth  *oauth2.Config
	client *http.Client
}

func NewFacebookService(cfg config.Config, pr repository.PostRepository) FacebookService {
	return &facebookService{
		cfg:    cfg.Facebook,
		secret: cfg.SecretKey,
		pr:     pr,
		oauth: &oauth2.Config{
			ClientID:     cfg.Facebook.AppID,
			ClientSecret: cfg.Facebook.AppSecret,
			RedirectURL:  cfg.Facebook.RedirectURI,
			Scopes:       []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts"},
			Endpoint:     facebook.Endpoint,
		},
		client: &http.Client{Timeout: cfg.PublishTimeout},
	}
}

func (s *facebookService) graphURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.GraphURL, "/"), s.cfg.GraphVersion, path)
}

func (s *facebookService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *facebookService) FacebookCallback(ctx context.Context, code string) (*models.Account, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code is empty", ErrInvalidInput)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: failed to exchange code: %v", ErrUpstream, err)
	}

	pages, err := s.listPages(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	var page *transfer.FacebookPage
	for i := range pages {
		if s.cfg.PageID == "" || pages[i].ID == s.cfg.PageID {
			page = &pages[i]
			break
		}
	}
	if page == nil {
		return nil, fmt.Errorf("%w: no manageable facebook page", ErrNotFound)
	}

	encryptedToken, err := utils.Encrypt([]byte(page.AccessToken), s.secret)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		PageID:      page.ID,
		PageName:    page.Name,
		AccessToken: encryptedToken,
		ConnectedAt: time.Now().UTC(),
	}
	if err := s.pr.SetAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	slog.Info("facebook page connected", "page_id", page.ID, "page_name", page.Name)
	return account, nil
}

func (s *facebookService) listPages(ctx context.Context, userToken string) ([]transfer.FacebookPage, error) {
	params := url.Values{}
	params.Set("fields", "id,name,access_token")
	params.Set("access_token", userToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.graphURL("me/accounts")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var pages transfer.FacebookPages
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, fmt.Errorf("%w: failed to decode pages: %v", ErrUpstream, err)
	}
	return pages.Data, nil
}

func (s *facebookService) AccountInfo(ctx context.Context) (*transfer.AccountInfo, error) {
	account, err := s.pr.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: no facebook page connected", ErrNotFound)
	}

	return &transfer.AccountInfo{
		PageID:      account.PageID,
		PageName:    account.PageName,
		ConnectedAt: account.ConnectedAt,
	}, nil
}

// PublishURL builds the Graph photos URL for an image. The access token is
// added only when the request is made.
func (s *facebookService) PublishURL(ctx context.Context, imageURL, caption string) (string, error) {
	pageID := s.cfg.PageID

	account, err := s.pr.GetAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if account != nil && account.PageID != "" {
		pageID = account.PageID
	}
	if pageID == "" {
		pageID = defaultPageID
	}

	params := url.Values{}
	params.Set("url", imageURL)
	params.Set("caption", caption)

	return s.graphURL(url.PathEscape(pageID)+"/photos") + "?" + params.Encode(), nil
}

func (s *facebookService) accessToken(ctx context.Context) (string, error) {
	account, err := s.pr.GetAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if account != nil && account.AccessToken != "" {
		return utils.Decrypt(account.AccessToken, s.secret)
	}
	if s.cfg.PageAccessToken != "" {
		return s.cfg.PageAccessToken, nil
	}
	return "", fmt.Errorf("%w: no page access token configured", ErrUpstream)
}

// PublishPhoto posts publishURL to the Graph API and returns the created
// photo id. It makes exactly one request.
func (s *facebookService) PublishPhoto(ctx context.Context, publishURL string) (string, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(publishURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid publish url: %v", ErrInvalidInput, err)
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	body, err := s.do(req)
	if err != nil {
		return "", err
	}

	var result transfer.FacebookPhotoResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: error parsing response: %v", ErrUpstream, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: no photo id returned from facebook", ErrUpstream)
	}

	return result.ID, nil
}

// do sends req and returns the body of a 2xx response. Everything else is
// reported as ErrUpstream.
func (s *facebookService) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		err = redactToken(err)
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: HTTP request error: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading response body: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var fbErr transfer.FacebookErrorResponse
		if json.Unmarshal(body, &fbErr) == nil && fbErr.Error.Message != "" {
			return nil, fmt.Errorf("%w: facebook returned %d: %s", ErrUpstream, resp.StatusCode, fbErr.Error.Message)
		}
		return nil, fmt.Errorf("%w: unexpected status code from facebook: %d", ErrUpstream, resp.StatusCode)
	}

	return body, nil
}

// redactToken strips the request URL, which carries the access token, from
// transport errors.
func redactToken(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

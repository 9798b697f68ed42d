// Package sso implements the external identity providers used for sign-in.
package sso

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"clientlance/internal/auth"
	"clientlance/internal/config"
)

// Provider runs the authorization-code flow against one identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.ExternalIdentity, error)
}

const googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

type GoogleProvider struct {
	oauth       *oauth2.Config
	userinfoURL string
}

func NewGoogleProvider(cfg config.OAuthProvider) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userinfoURL: googleUserinfoURL,
	}
}

func (g *GoogleProvider) Name() string {
	return "google"
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type googleUserinfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange trades the callback code for the signed-in user's identity.
// Google addresses that Google itself has not verified are refused.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*auth.ExternalIdentity, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, oops.Code("SSO_EXCHANGE_FAILED").With("provider", g.Name()).Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, oops.Code("SSO_USERINFO_FAILED").With("provider", g.Name()).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, oops.Code("SSO_USERINFO_FAILED").With("provider", g.Name()).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, oops.Code("SSO_USERINFO_FAILED").With("provider", g.Name()).With("status", resp.StatusCode).
			Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, oops.Code("SSO_USERINFO_FAILED").With("provider", g.Name()).Wrap(err)
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, oops.Code("SSO_EMAIL_UNVERIFIED").With("provider", g.Name()).Errorf("provider did not assert a verified email")
	}

	return &auth.ExternalIdentity{
		Provider:    g.Name(),
		Email:       info.Email,
		DisplayName: info.Name,
	}, nil
}

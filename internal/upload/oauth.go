package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"

	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/types"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Scopes required for publishing shorts on the user's channel.
var oauthScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// OAuth handles the authorization flow for the publish platform and token
// refresh for stored credentials.
type OAuth struct {
	config *oauth2.Config
	repo   *storage.Repository
	client *http.Client
}

// NewOAuth creates the handler. clientID and clientSecret come from the
// environment; redirectURL must match the registered OAuth application.
func NewOAuth(clientID, clientSecret, redirectURL string, repo *storage.Repository) (*OAuth, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("publish OAuth credentials not configured")
	}
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       oauthScopes,
			Endpoint:     google.Endpoint,
		},
		repo:   repo,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// AuthURL generates the authorization URL. Offline access with forced
// consent, so a refresh token is always granted.
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens, resolves the user's
// identity and channel, and stores the credential. Returns the user email.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %v", err)
	}

	email, err := o.fetchUserEmail(ctx, token)
	if err != nil {
		return "", err
	}

	cred := &types.Credential{
		UserEmail:    email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpires: token.Expiry.UTC(),
		Scope:        strings.Join(oauthScopes, " "),
	}

	// Channel info is a nice-to-have; failure does not block authorization.
	if channel, err := o.fetchChannelInfo(ctx, token); err != nil {
		log.Printf("Failed to get channel info for %s: %v", email, err)
	} else if channel != nil {
		cred.ChannelID = channel.Id
		if channel.Snippet != nil {
			cred.ChannelTitle = channel.Snippet.Title
			if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
				cred.ChannelThumbnail = channel.Snippet.Thumbnails.Default.Url
			}
		}
	}

	if err := o.repo.UpsertCredential(cred); err != nil {
		return "", err
	}

	log.Printf("Stored publish credentials for %s", email)
	return email, nil
}

// Refresh exchanges the stored refresh token for a fresh access token and
// persists it. Fails when the credential has no refresh token.
func (o *OAuth) Refresh(ctx context.Context, cred *types.Credential) (*types.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("credential for %s has no refresh token, re-authorization required", cred.UserEmail)
	}

	source := o.config.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %v", err)
	}

	cred.AccessToken = token.AccessToken
	cred.TokenExpires = token.Expiry.UTC()
	if err := o.repo.UpdateCredentialToken(cred.UserEmail, cred.AccessToken, cred.TokenExpires); err != nil {
		return nil, err
	}

	log.Printf("Refreshed publish token for %s", cred.UserEmail)
	return cred, nil
}

// Revoke invalidates the stored tokens with the provider and deletes the
// credential record.
func (o *OAuth) Revoke(ctx context.Context, userEmail string) error {
	cred, err := o.repo.GetCredential(userEmail)
	if err != nil {
		return err
	}
	if cred == nil {
		return nil
	}

	revokeURL := "https://oauth2.googleapis.com/revoke?token=" + cred.AccessToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, nil)
	if err == nil {
		if resp, err := o.client.Do(req); err != nil {
			log.Printf("Failed to revoke token with provider: %v", err)
		} else {
			resp.Body.Close()
		}
	}

	return o.repo.DeleteCredential(userEmail)
}

func (o *OAuth) fetchUserEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch user info: %v", err)
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to parse user info: %v", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("could not retrieve user email")
	}
	return info.Email, nil
}

func (o *OAuth) fetchChannelInfo(ctx context.Context, token *oauth2.Token) (*youtube.Channel, error) {
	service, err := youtube.NewService(ctx,
		option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, err
	}

	resp, err := service.Channels.List([]string{"snippet", "statistics"}).Mine(true).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return resp.Items[0], nil
}

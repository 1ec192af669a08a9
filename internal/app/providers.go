package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/pcurran/diarist/internal/config"
	"github.com/pcurran/diarist/pkg/provider/llm"
	"github.com/pcurran/diarist/pkg/provider/llm/anyllm"
)

// newProvider constructs a model provider from a config entry.
func newProvider(entry config.ProviderEntry) (llm.Provider, error) {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// googleTokenSource builds an auto-refreshing token source from the OAuth
// client credentials and a stored, pre-authorized token. diarist never runs
// the consent flow itself; the token file must already exist.
func googleTokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	oauthCfg, err := oauth2google.ConfigFromJSON(credBytes, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	tokenBytes, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(tokenBytes, token); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}

	return oauthCfg.TokenSource(ctx, token), nil
}

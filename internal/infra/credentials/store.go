package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ecofund/internal/infra"
	"ecofund/internal/sqlinline"
)

const (
	ProviderStripe        = "stripe"
	ProviderStripeWebhook = "stripe_webhook"
)

// Store reads and writes provider secrets kept in integration_tokens. It is
// the fallback when the secret is not configured in the environment.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// Resolve returns configured when it is set, otherwise the stored token.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	return s.Token(ctx, provider)
}

func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	switch provider {
	case ProviderStripe:
		if !strings.HasPrefix(token, "sk_") && !strings.HasPrefix(token, "rk_") {
			return fmt.Errorf("stripe secret key must start with sk_ or rk_")
		}
	case ProviderStripeWebhook:
		if !strings.HasPrefix(token, "whsec_") {
			return fmt.Errorf("stripe webhook secret must start with whsec_")
		}
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	raw, err := json.Marshal(map[string]any{"source": "cli"})
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

package twofactor

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// Settings is a plain Config implementation for callers that do not bind
// configuration from files.
type Settings struct {
	AppID                    string `json:"app_id"`
	AppSecret                string `json:"app_secret"`
	APIHost                  string `json:"api_host"`
	OperationID              string `json:"operation_id"`
	PairingStorePath         string `json:"pairing_store_path"`
	ChallengeSigningKey      string `json:"challenge_signing_key"`
	ChallengeTokenExpiration int    `json:"challenge_token_expiration"`
}

func (s Settings) GetAppID() string                 { return s.AppID }
func (s Settings) GetAppSecret() string             { return s.AppSecret }
func (s Settings) GetAPIHost() string               { return s.APIHost }
func (s Settings) GetOperationID() string           { return s.OperationID }
func (s Settings) GetPairingStorePath() string      { return s.PairingStorePath }
func (s Settings) GetChallengeSigningKey() string   { return s.ChallengeSigningKey }
func (s Settings) GetChallengeTokenExpiration() int { return s.ChallengeTokenExpiration }

var _ Config = Settings{}

// ValidateProviderConfig checks the provider credentials at startup. A
// failure here is fatal: per-request code assumes a usable configuration.
func ValidateProviderConfig(cfg Config) error {
	if cfg == nil {
		return ErrProviderMisconfigured.WithMetadata(map[string]any{
			"reason": "nil config",
		})
	}

	err := validation.Errors{
		"app_id":     validation.Validate(cfg.GetAppID(), validation.Required, validation.Length(8, 100)),
		"app_secret": validation.Validate(cfg.GetAppSecret(), validation.Required, validation.Length(8, 200)),
		"api_host":   validation.Validate(cfg.GetAPIHost(), is.URL),
	}.Filter()

	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, ErrProviderMisconfigured.Message).
			WithTextCode(ErrProviderMisconfigured.TextCode)
	}

	return nil
}

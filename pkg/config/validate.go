package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Development fallbacks. Validate rejects them in production.
const (
	DevJWTSecret   = "dev_secret"
	DevTokenSecret = "dev_waitlist_secret"
)

// Validate checks the loaded configuration for values the service cannot run without.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Env, validation.Required, validation.In(EnvDevelopment, EnvProduction)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.APIPrefix, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	err = validation.ValidateStruct(&c.Waitlist,
		validation.Field(&c.Waitlist.TokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.Waitlist.TokenSecret, validation.Required, validation.Length(8, 0)),
		validation.Field(&c.Waitlist.PublicBaseURL, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("waitlist config: %w", err)
	}

	err = validation.ValidateStruct(&c.Messaging,
		validation.Field(&c.Messaging.BaseURL, validation.Required),
		validation.Field(&c.Messaging.DefaultRegion, validation.Required, validation.Length(2, 2)),
		validation.Field(&c.Messaging.Timeout, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("messaging config: %w", err)
	}

	if c.Env == EnvProduction {
		err = validation.Errors{
			"JWT_SECRET":            validation.Validate(c.JWT.Secret, validation.Required, validation.NotIn(DevJWTSecret)),
			"WAITLIST_TOKEN_SECRET": validation.Validate(c.Waitlist.TokenSecret, validation.NotIn(DevTokenSecret)),
			"MESSAGING_API_KEY":     validation.Validate(c.Messaging.APIKey, validation.Required),
		}.Filter()
		if err != nil {
			return fmt.Errorf("production config: %w", err)
		}
	}
	return nil
}

// Package config loads the account secrets for the data sources.
//
// Secrets come from the environment, optionally seeded from a .env file in
// the working directory. Values already present in the environment win over
// the .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/bwestlin/pi-home-info/pkg/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadCredentials reads the credentials for both sources. A source with
// missing values is not an error here; use CheckTibber and CheckVerisure when
// the source is about to be used.
func LoadCredentials(envFile string) (types.Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return types.Credentials{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var creds types.Credentials
	if err := envconfig.Process("", &creds.Tibber); err != nil {
		return types.Credentials{}, fmt.Errorf("failed to read tibber credentials: %w", err)
	}
	if err := envconfig.Process("", &creds.Verisure); err != nil {
		return types.Credentials{}, fmt.Errorf("failed to read verisure credentials: %w", err)
	}
	creds.Verisure.Username = strings.TrimSpace(creds.Verisure.Username)
	return creds, nil
}

// CheckTibber returns a config error when the price API token is missing.
func CheckTibber(c types.TibberCredentials) error {
	return check("tibber", c)
}

// CheckVerisure returns a config error when the climate account is
// incomplete.
func CheckVerisure(c types.VerisureCredentials) error {
	return check("verisure", c)
}

func check(source string, c interface{}) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewError(types.KindConfig, source, "invalid credentials", err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, envName(c, fe.StructField()))
	}
	return types.NewError(types.KindConfig, source, "missing "+strings.Join(missing, ", "), nil)
}

// LogValue lists which sources have credentials without printing them.
func LogValue(c types.Credentials) slog.Value {
	return slog.GroupValue(
		slog.Bool("tibber", CheckTibber(c.Tibber) == nil),
		slog.Bool("verisure", CheckVerisure(c.Verisure) == nil),
	)
}

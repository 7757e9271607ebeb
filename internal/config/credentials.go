package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvIdentifier = "TRENDCAST_BSKY_IDENTIFIER"
	EnvPassword   = "TRENDCAST_BSKY_PASSWORD"
)

// Credentials are the static platform login. They are never logged: the
// LogValue and String methods redact the password.
type Credentials struct {
	Identifier string
	Password   string
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("identifier", c.Identifier),
		slog.String("password", "[redacted]"),
	)
}

func (c Credentials) String() string {
	return fmt.Sprintf("%s:[redacted]", c.Identifier)
}

func (c Credentials) Empty() bool {
	return c.Identifier == "" || c.Password == ""
}

// LoadCredentials reads the login from the environment, falling back to a
// dotenv-format secrets file. Environment values win over the file.
func LoadCredentials(secretsFile string) (Credentials, error) {
	creds := Credentials{
		Identifier: os.Getenv(EnvIdentifier),
		Password:   os.Getenv(EnvPassword),
	}

	if !creds.Empty() || secretsFile == "" {
		return creds, nil
	}

	values, err := godotenv.Read(secretsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return creds, nil
		}
		return Credentials{}, fmt.Errorf("failed to read secrets file: %w", err)
	}

	if creds.Identifier == "" {
		creds.Identifier = values[EnvIdentifier]
	}
	if creds.Password == "" {
		creds.Password = values[EnvPassword]
	}

	return creds, nil
}

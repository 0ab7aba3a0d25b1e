package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kbukum/execkit/validation"
)

// ReadEnvFile parses a dotenv file into a map without touching the process
// environment.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return env, nil
}

// ParseEnvPairs turns KEY=VALUE strings into a map. Later pairs win and an
// empty value is allowed. A pair without '=' or with a key that cannot name
// an environment variable fails with an INVALID_INPUT AppError.
func ParseEnvPairs(pairs []string) (map[string]string, error) {
	v := validation.New()
	env := make(map[string]string, len(pairs))
	for i, pair := range pairs {
		field := "env[" + strconv.Itoa(i) + "]"
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			v.AddError(field, "expected KEY=VALUE")
			continue
		}
		v.EnvName(field, key)
		env[key] = value
	}
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}
	return env, nil
}

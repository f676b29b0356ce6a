package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envFileFlag    = "--env-file"
	envFileEnvVar  = "ENV_FILE"
	defaultEnvFile = ".env"
)

// LoadEnvFile loads environment variables from a file and returns the path that was loaded, if any.
// Priority: --env-file flag > ENV_FILE environment variable > .env in working directory. Variables already present in
// the environment are never overridden.
func LoadEnvFile(args []string) (string, error) {
	if envFilePath := determineEnvFilePath(args); envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return "", fmt.Errorf("loading env file %s: %w", envFilePath, err)
		}
		return envFilePath, nil
	}

	err := godotenv.Load(defaultEnvFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading %s file: %w", defaultEnvFile, err)
	}
	return toAbsolutePath(defaultEnvFile), nil
}

func determineEnvFilePath(args []string) string {
	if path := parseEnvFileFlag(args); path != "" {
		return toAbsolutePath(path)
	}
	return toAbsolutePath(os.Getenv(envFileEnvVar))
}

func parseEnvFileFlag(args []string) string {
	for i, arg := range args {
		if arg == envFileFlag && i+1 < len(args) {
			return args[i+1]
		}
		if value, found := strings.CutPrefix(arg, envFileFlag+"="); found {
			return value
		}
	}
	return ""
}

func toAbsolutePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

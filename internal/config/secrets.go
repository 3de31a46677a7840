package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretReader читает секреты из каталога Docker Secrets.
// Если файла нет, используется переменная окружения с именем секрета в верхнем регистре.
type SecretReader struct {
	Dir string
}

// Read returns the trimmed secret value.
func (r SecretReader) Read(secretName string) (string, error) {
	filePath := filepath.Join(r.Dir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err == nil {
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	}

	envName := strings.ToUpper(secretName)
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in %s or env %s: %w", secretName, filePath, envName, err)
}

//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// The secrets file is {"<service>": {"<account>": value}}. A value is either
// a string or a list of strings; lists are joined with commas so that
// several Gemini keys can be written one per element.
type secretsFile map[string]map[string]json.RawMessage

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "cropdoc", "secrets.json")
}

func readSecretsFile(path string) (secretsFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return secretsFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	var f secretsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if f == nil {
		f = secretsFile{}
	}
	return f, nil
}

func secretValue(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", errors.New("secret must be a string or a list of strings")
	}
	return strings.Join(list, ","), nil
}

func keychainGet(service, account string) ([]byte, error) {
	f, err := readSecretsFile(secretsFilePath())
	if err != nil {
		return nil, err
	}
	raw, ok := f[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret %s/%s in %s", service, account, secretsFilePath())
	}
	v, err := secretValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", service, account, err)
	}
	return []byte(v), nil
}

// keychainSet refuses to touch a secrets file it cannot parse, and replaces
// the file atomically.
func keychainSet(service, account, value string) error {
	p := secretsFilePath()
	f, err := readSecretsFile(p)
	if err != nil {
		return fmt.Errorf("not overwriting secrets file: %w", err)
	}
	if f[service] == nil {
		f[service] = make(map[string]json.RawMessage)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f[service][account] = encoded

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".secrets-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

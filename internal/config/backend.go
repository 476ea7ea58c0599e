package config

// ConfigBackend holds the non-secret cropdoc settings. On macOS it is the
// com.cropdoc.app UserDefaults domain, elsewhere a JSON file under
// XDG_CONFIG_HOME. Secrets never go through it; see SecretStore.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// Secret store accounts under secretService.
const (
	geminiKeysAccount = "gemini_api_keys"
	weatherKeyAccount = "weather_api_key"
)

// geminiKeyHint explains where Gemini keys may come from. The platform
// suffix names the local secret store.
func geminiKeyHint() string {
	return "Set CROPDOC_GEMINI_API_KEYS (comma-separated, tried in order)" + apiKeyHint()
}

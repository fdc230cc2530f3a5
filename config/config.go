package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging     LoggingConfig  `yaml:"logging"`
	Mongo       MongoConfig    `yaml:"mongo"`
	ChatAPI     ChatAPIConfig  `yaml:"chat_api"`
	LLM         LLMConfig      `yaml:"llm"`
	Storage     StorageConfig  `yaml:"storage"`
	Server      ServerConfig   `yaml:"server"`
	Auth        AuthConfig     `yaml:"auth"`
	Session     SessionConfig  `yaml:"session"`
	Explorer    ExplorerConfig `yaml:"explorer"`
	Suggestions []Suggestion   `yaml:"suggestions"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

// ChatAPIConfig 는 터미널 클라이언트가 호출할 채팅 API 엔드포인트 설정이다.
type ChatAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	Path    string `yaml:"path"`
	// TimeoutSeconds 는 단일 채팅 요청의 최대 대기 시간이다. 0 이하면 기본값 120초.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LLMConfig 는 cmd/chatapi 가 사용할 모델 설정이다.
// Provider 는 "google"(Gemini) 또는 "anthropic"(Claude).
type LLMConfig struct {
	Provider          string `yaml:"provider"`
	ModelName         string `yaml:"model_name"`
	SystemInstruction string `yaml:"system_instruction"`
	MaxTokens         int    `yaml:"max_tokens"`
	// API 키는 환경변수로만 받는다.
	GeminiAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
}

// StorageConfig 는 대화 히스토리 저장소 선택이다. Driver 는 "mongo" 또는 "sqlite".
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
}

// ServerConfig 는 cmd/chatapi HTTP 서버 설정이다.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxMessageLen  int           `yaml:"max_message_len"`
	Logging        LoggingConfig `yaml:"logging"`
}

type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	Issuer       string `yaml:"issuer"`
	RequireToken bool   `yaml:"require_token"`
}

// SessionConfig 는 대화 세션 매니저가 사용하는 문구와 타임아웃이다.
type SessionConfig struct {
	Greeting      string `yaml:"greeting"`
	ResetGreeting string `yaml:"reset_greeting"`
	ErrorReply    string `yaml:"error_reply"`
	// StoreTimeoutSeconds 는 히스토리 저장/조회 1회의 최대 시간이다.
	StoreTimeoutSeconds int `yaml:"store_timeout_seconds"`
}

type ExplorerConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// Suggestion is a starter prompt shown while the conversation only holds the greeting.
type Suggestion struct {
	Title  string `yaml:"title"`
	Prompt string `yaml:"prompt"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	var c AppConfig
	// config.yaml 이 없으면 기본값과 환경변수만으로 동작한다.
	if base := GetBasePath(); base != "" {
		data, err := os.ReadFile(filepath.Join(base, CONFIG_FILE))
		if err != nil {
			panic(err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			panic(err)
		}
	}

	applyEnv(&c)
	applyDefaults(&c)
	config = &c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

// SetConfig replaces the global configuration. Intended for tests and tools.
func SetConfig(c AppConfig) {
	applyDefaults(&c)
	config = &c
}

func applyEnv(c *AppConfig) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		c.Mongo.DBName = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.GeminiAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("CHAT_API_BASE_URL"); v != "" {
		c.ChatAPI.BaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
}

func applyDefaults(c *AppConfig) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Logging.Level == "" {
		c.Server.Logging.Level = c.Logging.Level
	}
	if c.Explorer.Logging.Level == "" {
		c.Explorer.Logging.Level = c.Logging.Level
	}
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = "doha_explorer"
	}
	if c.ChatAPI.BaseURL == "" {
		c.ChatAPI.BaseURL = "http://localhost:5000"
	}
	if c.ChatAPI.Path == "" {
		c.ChatAPI.Path = "/api/chat"
	}
	if c.ChatAPI.TimeoutSeconds <= 0 {
		c.ChatAPI.TimeoutSeconds = 120
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "google"
	}
	if c.LLM.ModelName == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.ModelName = "claude-sonnet-4-20250514"
		default:
			c.LLM.ModelName = "gemini-2.5-flash"
		}
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "mongo"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join("data", "doha_explorer.db")
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Server.MaxMessageLen <= 0 {
		c.Server.MaxMessageLen = 4000
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "doha-explorer"
	}
	if c.Session.Greeting == "" {
		c.Session.Greeting = "Marhaba! 🌅 I'm your Doha Explorer. How can I assist you today?"
	}
	if c.Session.ResetGreeting == "" {
		c.Session.ResetGreeting = "Hello! How can I help you explore Doha today? 🇶🇦"
	}
	if c.Session.ErrorReply == "" {
		c.Session.ErrorReply = "Connection lost..."
	}
	if c.Session.StoreTimeoutSeconds <= 0 {
		c.Session.StoreTimeoutSeconds = 10
	}
	if len(c.Suggestions) == 0 {
		c.Suggestions = defaultSuggestions()
	}
}

func defaultSuggestions() []Suggestion {
	return []Suggestion{
		{Title: "Plan a Day Trip", Prompt: "Best spots in Msheireb Downtown"},
		{Title: "Local Cuisine", Prompt: "Where to find the best Machboos"},
		{Title: "Transit Guide", Prompt: "How to navigate the Doha Metro"},
		{Title: "Hidden Gems", Prompt: "Explore the Singing Sand Dunes"},
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

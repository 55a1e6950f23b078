package types

import (
	"time"
)

// AppConfig is the root configuration for the autoreply gateway
type AppConfig struct {
	DebugMode  bool `key:"debugMode" json:"debug_mode"`
	PrettyLogs bool `key:"prettyLogs" json:"pretty_logs"`

	Gateway   GatewayConfig   `key:"gateway" json:"gateway"`
	Database  DatabaseConfig  `key:"database" json:"database"`
	OAuth     OAuthConfig     `key:"oauth" json:"oauth"`
	Generator GeneratorConfig `key:"generator" json:"generator"`
	Mailer    MailerConfig    `key:"mailer" json:"mailer"`
}

type GatewayConfig struct {
	Host        string `key:"host" json:"host"`
	Port        int    `key:"port" json:"port"`
	ExternalURL string `key:"externalURL" json:"external_url"`
}

type DatabaseConfig struct {
	Redis RedisConfig `key:"redis" json:"redis"`
}

type RedisMode string

const (
	RedisModeSingle  RedisMode = "single"
	RedisModeCluster RedisMode = "cluster"
)

type RedisConfig struct {
	Mode               RedisMode     `key:"mode" json:"mode"`
	Addrs              []string      `key:"addrs" json:"addrs"`
	Username           string        `key:"username" json:"username"`
	Password           string        `key:"password" json:"password"`
	ClientName         string        `key:"clientName" json:"client_name"`
	EnableTLS          bool          `key:"enableTLS" json:"enable_tls"`
	InsecureSkipVerify bool          `key:"insecureSkipVerify" json:"insecure_skip_verify"`
	PoolSize           int           `key:"poolSize" json:"pool_size"`
	DialTimeout        time.Duration `key:"dialTimeout" json:"dial_timeout"`
	ReadTimeout        time.Duration `key:"readTimeout" json:"read_timeout"`
	WriteTimeout       time.Duration `key:"writeTimeout" json:"write_timeout"`
	MaxRetries         int           `key:"maxRetries" json:"max_retries"`
}

// OAuthConfig holds OAuth app credentials for the linked mail accounts
type OAuthConfig struct {
	Google    OAuthClientConfig `key:"google" json:"google"`
	Microsoft OAuthClientConfig `key:"microsoft" json:"microsoft"`
}

type OAuthClientConfig struct {
	ClientID     string `key:"clientId" json:"client_id"`
	ClientSecret string `key:"clientSecret" json:"client_secret"`
	RedirectURL  string `key:"redirectURL" json:"redirect_url"`
}

// GeneratorConfig configures the reply generation backend
type GeneratorConfig struct {
	APIKey    string `key:"apiKey" json:"api_key"`
	BaseURL   string `key:"baseURL" json:"base_url"`
	Model     string `key:"model" json:"model"`
	MaxTokens int    `key:"maxTokens" json:"max_tokens"`
}

// MailerConfig configures polling and the linked account addresses.
// SelfAddress entries are used to suppress replies to our own messages.
type MailerConfig struct {
	PollInterval   time.Duration `key:"pollInterval" json:"poll_interval"`
	FetchLimit     int           `key:"fetchLimit" json:"fetch_limit"`
	GmailAddress   string        `key:"gmailAddress" json:"gmail_address"`
	OutlookAddress string        `key:"outlookAddress" json:"outlook_address"`
}

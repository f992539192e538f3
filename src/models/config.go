package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Debug    bool           `yaml:"debug"`
	GrpcHost string         `yaml:"grpc_host"`
	GrpcPort int            `yaml:"grpc_port"`
	Storage  MStorageConfig `yaml:"storage"`
	Network  MNetworkConfig `yaml:"network"`
	Market   MMarketConfig  `yaml:"market"`
	Auth     MAuthConfig    `yaml:"auth"`
	Events   MEventsConfig  `yaml:"events"`
	Cors     MCorsConfig    `yaml:"cors"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MMarketConfig struct {
	StartingCash    float64 `yaml:"starting_cash"`
	RecentSize      int     `yaml:"recent_size"`
	TradingCalendar string  `yaml:"trading_calendar"` // MIC code, empty = always open
}

type MAuthConfig struct {
	SecretKey    string   `yaml:"secret_key"`
	ServerName   string   `yaml:"server_name"` // public base URL used for the OAuth callback
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	ProfileURL   string   `yaml:"profile_url"`
	Scopes       []string `yaml:"scopes"`
}

type MEventsConfig struct {
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	RedisPrefix   string   `yaml:"redis_prefix"`
	KafkaBrokers  []string `yaml:"kafka_brokers"`
	KafkaTopic    string   `yaml:"kafka_topic"`
}

type MCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	YooKassa struct {
		ShopID        string `yaml:"shop_id"`
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
		// Куда YooKassa вернет пользователя после оплаты
		ReturnURL string `yaml:"return_url"`
		// VerifyWebhook можно отключить ТОЛЬКО для локальной разработки
		VerifyWebhook bool `yaml:"verify_webhook"`
	} `yaml:"yookassa"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		AppBaseURL   string `yaml:"app_base_url"`
	} `yaml:"email"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Security struct {
		EnableHSTS bool `yaml:"enable_hsts"`
	} `yaml:"security"`

	RateLimit struct {
		// Запросов на пользователя/IP в окно
		Requests int `yaml:"requests"`
		// Окно в секундах
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"rate_limit"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

var AppConfig *Config

// LoadConfig загружает конфигурацию из config.yaml и переменных окружения.
// Переменные окружения имеют приоритет над yaml.
func LoadConfig() {
	var cfg Config

	// .env не обязателен - в проде переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, relying on environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if f, err := os.Open(configPath); err == nil {
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			f.Close()
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}
		f.Close()
	} else {
		log.Printf("Config file %s not found, using environment only", configPath)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	// Критичные секреты проверяются на старте. Никаких дефолтных
	// секретов-заглушек: без них сервер не запускается.
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is not configured. Server will exit.")
	}
	if cfg.Database.DSN == "" {
		log.Fatal("DATABASE_URL is not configured. Server will exit.")
	}
	if cfg.YooKassa.ShopID == "" || cfg.YooKassa.SecretKey == "" {
		log.Fatal("YOOKASSA_SHOP_ID / YOOKASSA_SECRET_KEY are not configured. Server will exit.")
	}
	if cfg.Gemini.APIKey == "" {
		log.Fatal("GEMINI_API_KEY is not configured. Server will exit.")
	}

	AppConfig = &cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("SERVER_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("YOOKASSA_SHOP_ID"); v != "" {
		cfg.YooKassa.ShopID = v
	}
	if v := os.Getenv("YOOKASSA_SECRET_KEY"); v != "" {
		cfg.YooKassa.SecretKey = v
	}
	if v := os.Getenv("YOOKASSA_WEBHOOK_SECRET"); v != "" {
		cfg.YooKassa.WebhookSecret = v
	}
	if v := os.Getenv("YOOKASSA_RETURN_URL"); v != "" {
		cfg.YooKassa.ReturnURL = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		cfg.Email.SMTPPort, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.SMTPUsername = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Email.SMTPPassword = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("ENABLE_HSTS"); v != "" {
		cfg.Security.EnableHSTS = v == "true" || v == "1"
	}
	if v := os.Getenv("FIRST_ADMIN_EMAIL"); v != "" {
		cfg.FirstAdminEmail = v
	}
	if v := os.Getenv("FIRST_ADMIN_PASSWORD"); v != "" {
		cfg.FirstAdminPassword = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash"
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "Металл Вектор"
	}
	if cfg.YooKassa.ReturnURL == "" && cfg.Email.AppBaseURL != "" {
		cfg.YooKassa.ReturnURL = cfg.Email.AppBaseURL + "/payments/result"
	}
	// Подпись вебхука по умолчанию проверяется всегда
	if os.Getenv("YOOKASSA_SKIP_WEBHOOK_VERIFY") != "true" {
		cfg.YooKassa.VerifyWebhook = true
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

// Package config содержит функции для загрузки конфигурации приложения
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazadus/go-broadcast/internal/logger"
	"github.com/hazadus/go-broadcast/internal/s3"
)

// DefaultPath путь к файлу конфигурации по умолчанию
const DefaultPath = "~/.broadcast"

// EnvPrefix префикс переменных окружения, переопределяющих файл
const EnvPrefix = "BROADCAST_"

// Config структура для хранения конфигурации приложения
type Config struct {
	AwsBucketName string `yaml:"aws_bucket_name"`
	AwsAccessKey  string `yaml:"aws_access_key"`
	AwsSecretKey  string `yaml:"aws_secret_key"`
	AwsRegion     string `yaml:"aws_region"`
	AwsEndpoint   string `yaml:"aws_endpoint"`

	CatalogPath string        `yaml:"catalog_path"`
	ListenAddr  string        `yaml:"listen_addr"`
	UploadDelay time.Duration `yaml:"upload_delay"`
	PlayerTick  time.Duration `yaml:"player_tick"`
	Volume      float64       `yaml:"volume"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	config.expandPaths()
	return config
}

// LoadEnv подгружает .env файлы; существующие переменные не перезаписываются
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("ошибка загрузки .env: %w", err)
	}
	return nil
}

// LoadConfig загружает конфигурацию приложения из указанного файла.
// Значения из файла переопределяются переменными окружения BROADCAST_*.
func LoadConfig(filePath string) (*Config, error) {
	path, err := ExpandHome(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()
	config.expandPaths()

	return config, nil
}

// LoadConfigOrDefault загружает конфигурацию как LoadConfig. Если файла нет,
// используются переменные окружения и значения по умолчанию.
func LoadConfigOrDefault(filePath string) (*Config, error) {
	config, err := LoadConfig(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		config = &Config{}
		config.applyEnv()
		config.applyDefaults()
		config.expandPaths()
		return config, nil
	}
	return config, err
}

// S3 возвращает настройки хранилища
func (c *Config) S3() *s3.Config {
	return &s3.Config{
		Region:     c.AwsRegion,
		AccessKey:  c.AwsAccessKey,
		SecretKey:  c.AwsSecretKey,
		Endpoint:   c.AwsEndpoint,
		BucketName: c.AwsBucketName,
	}
}

// Logger возвращает настройки логирования
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		OutputPath: c.LogFile,
	}
}

func (c *Config) applyEnv() {
	c.AwsBucketName = getEnv("AWS_BUCKET_NAME", c.AwsBucketName)
	c.AwsAccessKey = getEnv("AWS_ACCESS_KEY", c.AwsAccessKey)
	c.AwsSecretKey = getEnv("AWS_SECRET_KEY", c.AwsSecretKey)
	c.AwsRegion = getEnv("AWS_REGION", c.AwsRegion)
	c.AwsEndpoint = getEnv("AWS_ENDPOINT", c.AwsEndpoint)
	c.CatalogPath = getEnv("CATALOG_PATH", c.CatalogPath)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.UploadDelay = getEnvDuration("UPLOAD_DELAY", c.UploadDelay)
	c.PlayerTick = getEnvDuration("PLAYER_TICK", c.PlayerTick)
	c.Volume = getEnvFloat("VOLUME", c.Volume)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Устанавливаем значения по умолчанию, если они не заданы
func (c *Config) applyDefaults() {
	if c.AwsRegion == "" {
		c.AwsRegion = "us-east-1"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.UploadDelay <= 0 {
		c.UploadDelay = 2 * time.Second
	}
	if c.PlayerTick <= 0 {
		c.PlayerTick = 250 * time.Millisecond
	}
	if c.Volume <= 0 || c.Volume > 1 {
		c.Volume = 0.7
	}
	if c.LogFile == "" {
		c.LogFile = "~/.broadcast.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) expandPaths() {
	if path, err := ExpandHome(c.CatalogPath); err == nil {
		c.CatalogPath = path
	}
	if path, err := ExpandHome(c.LogFile); err == nil {
		c.LogFile = path
	}
}

// ExpandHome раскрывает ведущую тильду в пути
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ошибка определения домашнего каталога: %w", err)
	}
	return home + strings.TrimPrefix(path, "~"), nil
}

// getEnv возвращает значение BROADCAST_<key> или fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

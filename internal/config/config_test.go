package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, value any) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	data, err := yaml.Marshal(value)
	if err != nil {
		t.Fatalf("Ошибка сериализации конфигурации: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Ошибка записи файла конфигурации: %v", err)
	}
	return configPath
}

func TestLoadConfigFromFile(t *testing.T) {
	testConfig := Config{
		AwsBucketName: "test-bucket",
		AwsAccessKey:  "test-access-key",
		AwsSecretKey:  "test-secret-key",
		AwsRegion:     "eu-central-1",
		AwsEndpoint:   "https://s3.example.com",
		CatalogPath:   "~/music/catalog.yaml",
		ListenAddr:    "127.0.0.1:9000",
		UploadDelay:   500 * time.Millisecond,
		PlayerTick:    time.Second,
		Volume:        0.5,
		LogLevel:      "debug",
	}

	loadedConfig, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if loadedConfig.AwsBucketName != testConfig.AwsBucketName {
		t.Errorf("Ожидался AwsBucketName: %s, получено: %s", testConfig.AwsBucketName, loadedConfig.AwsBucketName)
	}
	if loadedConfig.AwsRegion != testConfig.AwsRegion {
		t.Errorf("Ожидался AwsRegion: %s, получено: %s", testConfig.AwsRegion, loadedConfig.AwsRegion)
	}
	if loadedConfig.ListenAddr != testConfig.ListenAddr {
		t.Errorf("Ожидался ListenAddr: %s, получено: %s", testConfig.ListenAddr, loadedConfig.ListenAddr)
	}
	if loadedConfig.UploadDelay != testConfig.UploadDelay {
		t.Errorf("Ожидался UploadDelay: %v, получено: %v", testConfig.UploadDelay, loadedConfig.UploadDelay)
	}
	if loadedConfig.PlayerTick != testConfig.PlayerTick {
		t.Errorf("Ожидался PlayerTick: %v, получено: %v", testConfig.PlayerTick, loadedConfig.PlayerTick)
	}
	if loadedConfig.Volume != 0.5 {
		t.Errorf("Ожидалась громкость 0.5, получено: %v", loadedConfig.Volume)
	}

	// Проверяем, что CatalogPath раскрывается с тильдой
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, "music", "catalog.yaml")
	if loadedConfig.CatalogPath != expected {
		t.Errorf("Ожидался CatalogPath: %s, получено: %s", expected, loadedConfig.CatalogPath)
	}

	s3Config := loadedConfig.S3()
	if !s3Config.Enabled() || s3Config.Endpoint != testConfig.AwsEndpoint {
		t.Errorf("Неверные настройки S3: %+v", s3Config)
	}
	if loadedConfig.Logger().Level != "debug" {
		t.Errorf("Неверный уровень логирования: %s", loadedConfig.Logger().Level)
	}
}

func TestDefaultConfig(t *testing.T) {
	minimalConfig := map[string]string{
		"aws_bucket_name": "test-bucket",
	}

	loadedConfig, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if loadedConfig.ListenAddr != ":8080" {
		t.Errorf("Ожидался ListenAddr по умолчанию, получено: %s", loadedConfig.ListenAddr)
	}
	if loadedConfig.UploadDelay != 2*time.Second {
		t.Errorf("Ожидалась задержка по умолчанию 2s, получено: %v", loadedConfig.UploadDelay)
	}
	if loadedConfig.PlayerTick != 250*time.Millisecond {
		t.Errorf("Ожидался тик по умолчанию 250ms, получено: %v", loadedConfig.PlayerTick)
	}
	if loadedConfig.Volume != 0.7 {
		t.Errorf("Ожидалась громкость по умолчанию 0.7, получено: %v", loadedConfig.Volume)
	}

	home, _ := os.UserHomeDir()
	if loadedConfig.LogFile != filepath.Join(home, ".broadcast.log") {
		t.Errorf("Неверный файл лога по умолчанию: %s", loadedConfig.LogFile)
	}
	if loadedConfig.CatalogPath != "" {
		t.Errorf("CatalogPath не должен задаваться по умолчанию, получено: %s", loadedConfig.CatalogPath)
	}

	if Default().ListenAddr != ":8080" {
		t.Error("Default должна содержать значения по умолчанию")
	}
}

func TestEnvVarOverride(t *testing.T) {
	baseConfig := Config{
		AwsBucketName: "default-bucket",
		AwsAccessKey:  "default-key",
		AwsRegion:     "us-west-1",
	}

	t.Setenv("BROADCAST_AWS_BUCKET_NAME", "env-bucket")
	t.Setenv("BROADCAST_UPLOAD_DELAY", "3s")
	t.Setenv("BROADCAST_VOLUME", "0.25")
	t.Setenv("BROADCAST_PLAYER_TICK", "не длительность")

	loadedConfig, err := LoadConfig(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if loadedConfig.AwsBucketName != "env-bucket" {
		t.Errorf("Ожидался AwsBucketName из окружения: env-bucket, получено: %s", loadedConfig.AwsBucketName)
	}
	if loadedConfig.AwsAccessKey != "default-key" {
		t.Errorf("Ожидался AwsAccessKey из файла: default-key, получено: %s", loadedConfig.AwsAccessKey)
	}
	if loadedConfig.UploadDelay != 3*time.Second {
		t.Errorf("Ожидалась задержка из окружения 3s, получено: %v", loadedConfig.UploadDelay)
	}
	if loadedConfig.Volume != 0.25 {
		t.Errorf("Ожидалась громкость из окружения 0.25, получено: %v", loadedConfig.Volume)
	}
	if loadedConfig.PlayerTick != 250*time.Millisecond {
		t.Errorf("Некорректное значение окружения должно игнорироваться, получено: %v", loadedConfig.PlayerTick)
	}
}

func TestLoadEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("BROADCAST_TEST_ONLY=из-файла\n"), 0644); err != nil {
		t.Fatalf("Ошибка записи .env: %v", err)
	}
	t.Setenv("BROADCAST_TEST_ONLY", "")
	os.Unsetenv("BROADCAST_TEST_ONLY")

	if err := LoadEnv(envPath); err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if got := os.Getenv("BROADCAST_TEST_ONLY"); got != "из-файла" {
		t.Errorf("Ожидалось значение из .env, получено: %q", got)
	}

	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Ожидалась ошибка для отсутствующего .env")
	}
}

func TestLoadConfigNonExistentFile(t *testing.T) {
	_, err := LoadConfig("/non/existent/config.yaml")

	if err == nil {
		t.Fatal("Ожидалась ошибка при загрузке несуществующего файла")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Ошибка должна оборачивать fs.ErrNotExist: %v", err)
	}
}

func TestLoadConfigOrDefaultWithoutFile(t *testing.T) {
	t.Setenv(EnvPrefix+"LISTEN_ADDR", ":9090")

	config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if config.ListenAddr != ":9090" {
		t.Errorf("Ожидался адрес из окружения :9090, получено %s", config.ListenAddr)
	}
	if config.UploadDelay != 2*time.Second {
		t.Errorf("Ожидалась задержка по умолчанию 2s, получено %v", config.UploadDelay)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid_config.yaml")

	invalidYAML := `aws_bucket_name: "test-bucket"
invalid_field: [unclosed array
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Ошибка записи файла конфигурации: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Ожидалась ошибка при загрузке некорректного YAML")
	}
	if !strings.Contains(err.Error(), "ошибка разбора конфигурации") {
		t.Errorf("Неожиданное сообщение об ошибке: %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		input, expected string
	}{
		{"~", home},
		{"~/a/b", home + "/a/b"},
		{"/abs/~/x", "/abs/~/x"},
		{"~user/x", "~user/x"},
		{"", ""},
	}

	for _, test := range tests {
		got, err := ExpandHome(test.input)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if got != test.expected {
			t.Errorf("ExpandHome(%q) = %q; ожидалось %q", test.input, got, test.expected)
		}
	}
}

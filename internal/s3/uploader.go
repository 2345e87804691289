// Package s3 хранит загруженные аудио файлы в S3-совместимом хранилище
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// KeyPrefix префикс ключей загруженных треков
const KeyPrefix = "tracks/"

// Config содержит настройки для S3
type Config struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	BucketName string
}

// Enabled сообщает, задано ли хранилище
func (c Config) Enabled() bool {
	return c.BucketName != ""
}

// objectUploader часть s3manager.Uploader, используемая для загрузки
type objectUploader interface {
	UploadWithContext(ctx context.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// objectDeleter часть клиента S3, используемая для удаления
type objectDeleter interface {
	DeleteObjectWithContext(ctx context.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
}

// Uploader загружает и удаляет объекты в одном бакете
type Uploader struct {
	s3Uploader objectUploader
	s3Client   objectDeleter
	config     *Config
}

// NewUploader создает новый S3 uploader
func NewUploader(config *Config) (*Uploader, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
	}

	// Если указан endpoint, используем path-style адреса (MinIO и аналоги)
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AWS сессии: %w", err)
	}

	return newUploader(config, s3manager.NewUploader(sess), s3.New(sess)), nil
}

func newUploader(config *Config, uploader objectUploader, client objectDeleter) *Uploader {
	return &Uploader{
		s3Uploader: uploader,
		s3Client:   client,
		config:     config,
	}
}

// ObjectKey формирует ключ объекта для трека: tracks/<id><расширение>
func ObjectKey(trackID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".mp3"
	}
	return KeyPrefix + trackID + ext
}

// UploadFile загружает содержимое под ключом key и возвращает публичный URL объекта
func (u *Uploader) UploadFile(ctx context.Context, reader io.Reader, key, contentType string) (string, error) {
	input := &s3manager.UploadInput{
		Bucket: aws.String(u.config.BucketName),
		Key:    aws.String(key),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.s3Uploader.UploadWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("ошибка загрузки: %w", err)
	}

	return u.ObjectURL(key), nil
}

// DeleteFile удаляет файл из S3
func (u *Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.config.BucketName),
		Key:    aws.String(key),
	})

	if err != nil {
		return fmt.Errorf("ошибка удаления файла из S3: %w", err)
	}

	return nil
}

// ObjectURL возвращает адрес объекта: path-style для собственного endpoint,
// virtual-hosted для AWS
func (u *Uploader) ObjectURL(key string) string {
	if u.config.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.config.Endpoint, "/"), u.config.BucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.config.BucketName, u.config.Region, key)
}

// KeyForURL извлекает ключ объекта из URL, выданного этим хранилищем
func (u *Uploader) KeyForURL(url string) (string, bool) {
	base := u.ObjectURL("")
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	key := strings.TrimPrefix(url, base)
	if key == "" {
		return "", false
	}
	return key, true
}

// Package streaming содержит компоненты для потокового воспроизведения аудио
package streaming

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// UserAgent идентифицирует клиент при потоковом чтении
const UserAgent = "go-broadcast/1.0"

// defaultClient HTTP клиент без общего таймаута для длительного потокового чтения
var defaultClient = &http.Client{
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       300 * time.Second, // 5 минут
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// Reader представляет буферизованный поток для чтения данных порциями
type Reader struct {
	reader        *bufio.Reader
	resp          *http.Response
	contentLength int64
	contentType   string
}

// NewReader создает новый потоковый ридер
func NewReader(ctx context.Context, url string, bufferSize int) (*Reader, error) {
	return NewReaderWithClient(ctx, defaultClient, url, bufferSize)
}

// NewReaderWithClient создает потоковый ридер поверх заданного HTTP клиента
func NewReaderWithClient(ctx context.Context, client *http.Client, url string, bufferSize int) (*Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Accept-Encoding", "identity") // Отключаем сжатие для потока
	req.Header.Set("Range", "bytes=0-")           // Читаем с начала
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("ошибка HTTP: %s", resp.Status)
	}

	return &Reader{
		reader:        bufio.NewReaderSize(resp.Body, bufferSize),
		resp:          resp,
		contentLength: resp.ContentLength,
		contentType:   resp.Header.Get("Content-Type"),
	}, nil
}

// Read реализует интерфейс io.Reader для потокового чтения
func (sr *Reader) Read(p []byte) (n int, err error) {
	return sr.reader.Read(p)
}

// ContentLength размер ответа или -1, если он неизвестен
func (sr *Reader) ContentLength() int64 {
	return sr.contentLength
}

// ContentType значение заголовка Content-Type ответа
func (sr *Reader) ContentType() string {
	return sr.contentType
}

// Close закрывает соединение
func (sr *Reader) Close() error {
	return sr.resp.Body.Close()
}

// DescribeStalls возвращает текстовое описание состояния потока по числу
// тиков подряд, в течение которых позиция не менялась
func DescribeStalls(stalls int) string {
	switch {
	case stalls <= 0:
		return "Потоковое воспроизведение"
	case stalls <= 3:
		return "Буферизация..."
	case stalls <= 5:
		return "Медленная загрузка"
	default:
		return "Возможная проблема с соединением"
	}
}

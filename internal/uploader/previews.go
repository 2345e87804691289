package uploader

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// PreviewScheme схема локаторов превью
const PreviewScheme = "preview://"

// Previews выдает временные локаторы для локальных файлов. Каждый
// выданный дескриптор должен быть освобожден через Release.
type Previews struct {
	mutex   sync.RWMutex
	handles map[string]string
}

// NewPreviews создает пустой реестр превью
func NewPreviews() *Previews {
	return &Previews{handles: make(map[string]string)}
}

// Open регистрирует файл и возвращает локатор вида preview://<uuid>
func (p *Previews) Open(path string) string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	locator := PreviewScheme + uuid.NewString()
	p.handles[locator] = path
	return locator
}

// Release освобождает дескриптор. Возвращает false, если он уже освобожден.
func (p *Previews) Release(locator string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, ok := p.handles[locator]; !ok {
		return false
	}
	delete(p.handles, locator)
	return true
}

// Resolve возвращает путь к файлу для активного дескриптора
func (p *Previews) Resolve(locator string) (string, bool) {
	if !strings.HasPrefix(locator, PreviewScheme) {
		return "", false
	}
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	path, ok := p.handles[locator]
	return path, ok
}

// Len возвращает число активных дескрипторов
func (p *Previews) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.handles)
}

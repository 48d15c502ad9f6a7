package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	mu   sync.RWMutex
	root *zap.Logger
)

// Init fija el logger del proceso. Llamadas posteriores no tienen efecto.
func Init(cfg Config) {
	once.Do(func() {
		set(build(cfg))
	})
}

// L devuelve el logger del proceso; sin Init previo arranca en dev/info.
func L() *zap.Logger {
	Init(Config{Env: "dev", Level: "info"})
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Replace cambia el logger del proceso y devuelve la función que restaura el
// anterior. Pensado para tests con zaptest/observer.
func Replace(l *zap.Logger) (restore func()) {
	Init(Config{Env: "dev", Level: "info"})
	mu.Lock()
	prev := root
	root = l
	mu.Unlock()
	return func() { set(prev) }
}

// Sync vacía los buffers del logger del proceso.
func Sync() error {
	mu.RLock()
	l := root
	mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.Sync()
}

func set(l *zap.Logger) {
	mu.Lock()
	root = l
	mu.Unlock()
}

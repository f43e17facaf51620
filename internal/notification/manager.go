package notification

import (
	"fmt"
	"sync"
)

var (
	instance *Service
	once     sync.Once
	mu       sync.RWMutex
)

// InitializeService installs the global notification service instance.
// Construction wires dependencies explicitly; this accessor exists for
// late-wired layers that resolve the instance after startup, which do so
// through GetService.
func InitializeService(service *Service) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		instance = service
	})
}

// GetService returns the global notification service instance, or nil.
func GetService() *Service {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// SetServiceForTesting allows setting a custom service instance for
// testing only. It returns an error if a service is already installed.
func SetServiceForTesting(service *Service) error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return fmt.Errorf("notification service already initialized")
	}
	instance = service
	return nil
}

// IsInitialized checks if the notification service has been initialized.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return instance != nil
}

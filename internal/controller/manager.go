package controller

import (
	"fmt"
	"sync"
)

var (
	instance *Controller
	once     sync.Once
	mu       sync.RWMutex
)

// InstallGlobal installs the process-wide controller instance. The
// controller itself is constructed with New and injected where possible;
// layers assembled after installation resolve it through GetController.
func InstallGlobal(c *Controller) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		instance = c
	})
}

// GetController returns the global controller instance, or nil.
func GetController() *Controller {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// SetControllerForTesting allows installing a custom instance for testing
// only. It returns an error if a controller is already installed.
func SetControllerForTesting(c *Controller) error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return fmt.Errorf("controller already initialized")
	}
	instance = c
	return nil
}

// IsInitialized checks if the global controller has been installed.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return instance != nil
}

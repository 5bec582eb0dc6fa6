package utils

import (
	"os"
)

// ref: https://www.thorsten-hans.com/check-if-application-is-running-in-docker-container/
func IsRunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err != nil {
		return false
	}
	return true
}

func Map[T any, O any](items []T, f func(T) O) []O {
	result := make([]O, len(items))
	for i, item := range items {
		result[i] = f(item)
	}
	return result
}

// Find returns a pointer to the first item satisfying condition, or nil.
func Find[T any](items []T, condition func(T) bool) *T {
	for i := range items {
		if condition(items[i]) {
			return &items[i]
		}
	}
	return nil
}

// ListenHost is the interface servers bind to: all interfaces inside a container, host otherwise.
func ListenHost(host string) string {
	if IsRunningInContainer() {
		return "0.0.0.0"
	}
	return host
}

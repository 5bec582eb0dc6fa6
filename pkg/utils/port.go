package utils

import (
	"log/slog"
	"net"
)

// GetAvailablePort finds an available port and returns it
func GetAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer func(listener net.Listener) {
		if err := listener.Close(); err != nil {
			slog.Error("Error closing listener", "err", err)
		}
	}(listener)

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

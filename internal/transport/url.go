package transport

import "fmt"

func baseURL(host string, port int) string {
	return fmt.Sprintf("http://%s:%d", host, port)
}

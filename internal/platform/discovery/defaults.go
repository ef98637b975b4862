// Package discovery centralizes the default addresses inventag processes use
// to find each other.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceInventory is the inventory API service identity.
	ServiceInventory = "inventory"
)

var httpPorts = map[string]int{
	ServiceInventory: 8093,
}

var grpcPorts = map[string]int{
	ServiceInventory: 8094,
}

// HTTPPort returns the conventional HTTP port for service, or 0.
func HTTPPort(service string) int {
	return httpPorts[strings.TrimSpace(service)]
}

// GRPCPort returns the conventional gRPC port for service, or 0.
func GRPCPort(service string) int {
	return grpcPorts[strings.TrimSpace(service)]
}

// DefaultListenAddr returns the HTTP listen address for service, e.g. ":8093".
func DefaultListenAddr(service string) string {
	port := HTTPPort(service)
	if port <= 0 {
		return ""
	}
	return ":" + strconv.Itoa(port)
}

// LocalBaseURL returns the HTTP base URL of service on this host.
func LocalBaseURL(service string) string {
	port := HTTPPort(service)
	if port <= 0 {
		return ""
	}
	return "http://localhost:" + strconv.Itoa(port)
}

// OrDefaultListenAddr returns value when set, otherwise the service convention.
func OrDefaultListenAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultListenAddr(service)
}

// OrDefaultHTTPBaseURL returns value when set, otherwise the local base URL.
func OrDefaultHTTPBaseURL(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return LocalBaseURL(service)
}

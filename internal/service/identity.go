package service

import (
	"net"
	"strings"

	"github.com/google/uuid"
)

// HardwareID returns override when set, otherwise the first non-loopback MAC
// address as upper-case hex without separators.
// Hosts without a usable interface get a random id, persisted on first boot like any other.
func HardwareID(override string) func() string {
	return func() string {
		if id := strings.TrimSpace(override); id != "" {
			return strings.ToUpper(id)
		}
		if mac := firstMAC(); mac != "" {
			return mac
		}
		return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	}
}

func firstMAC() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return strings.ToUpper(strings.ReplaceAll(iface.HardwareAddr.String(), ":", ""))
	}
	return ""
}

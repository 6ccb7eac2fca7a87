package main

import (
	"fmt"
	"net"

	"github.com/friendsincode/machinepark/internal/config"
)

// printBanner lists the addresses the API is reachable on. When bound to the
// wildcard address it enumerates the host's non-loopback interfaces so the
// operator gets copy-pasteable URLs.
func printBanner(cfg *config.Config) {
	fmt.Println("Machine Park is up. API endpoints:")

	if cfg.HTTPBind != "0.0.0.0" && cfg.HTTPBind != "::" && cfg.HTTPBind != "" {
		fmt.Printf("  http://%s:%d/api/v1\n", cfg.HTTPBind, cfg.HTTPPort)
		return
	}

	fmt.Printf("  http://127.0.0.1:%d/api/v1\n", cfg.HTTPPort)

	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			fmt.Printf("  http://%s:%d/api/v1\n", ipNet.IP, cfg.HTTPPort)
		}
	}
}

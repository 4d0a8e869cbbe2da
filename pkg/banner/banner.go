package banner

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"otterseal/pkg/config"
	"otterseal/pkg/validation"
)

const banner = `
 ██████╗ ████████╗████████╗███████╗██████╗ ███████╗███████╗ █████╗ ██╗
██╔═══██╗╚══██╔══╝╚══██╔══╝██╔════╝██╔══██╗██╔════╝██╔════╝██╔══██╗██║
██║   ██║   ██║      ██║   █████╗  ██████╔╝███████╗█████╗  ███████║██║
██║   ██║   ██║      ██║   ██╔══╝  ██╔══██╗╚════██║██╔══╝  ██╔══██║██║
╚██████╔╝   ██║      ██║   ███████╗██║  ██║███████║███████╗██║  ██║███████╗
 ╚═════╝    ╚═╝      ╚═╝   ╚══════╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝╚══════╝
`

// Print writes the startup banner with the effective runtime settings.
func Print(cfg *config.Config, addr, dbPath, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Max note: %s\n", humanize.IBytes(uint64(validation.MaxContentBytes)))

	if cfg != nil && cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
		fmt.Println("TLS:      configured")
	} else {
		fmt.Println("TLS:      unconfigured")
	}
	if cfg != nil && !cfg.Sweep.Disabled {
		if cfg.Sweep.Cron != "" {
			fmt.Printf("Sweep:    enabled (cron=%s)\n", cfg.Sweep.Cron)
		} else if cfg.Sweep.Interval != "" {
			fmt.Printf("Sweep:    enabled (interval=%s)\n", cfg.Sweep.Interval)
		} else {
			fmt.Println("Sweep:    enabled")
		}
	} else {
		fmt.Println("Sweep:    disabled")
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /api/notes/{id} - Store an encrypted note (JSON: content, expiresAt, burnAfterReading)")
	fmt.Println("GET  /api/notes/{id} - Fetch a note (?peek=1 to check without consuming)")
	fmt.Println("GET  /ws?id={id}     - Join a live editing room over WebSocket")
	fmt.Println("GET  /metrics        - Prometheus metrics")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/api/notes/<id>' -d '{\"content\": \"<ciphertext>\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/api/notes/<id>?peek=1'\n", addr)

	fmt.Println("\n== Production? =================================================")
	fmt.Println("Set a proper storage path (--db)")
	fmt.Println("Restrict CORS origins and terminate TLS in front of the server")

	fmt.Println("\n== Logs: =================================================")
}

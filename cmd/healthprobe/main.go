// healthprobe is a tiny sidecar that answers liveness checks for
// deployments where the main server's port is not reachable by the
// orchestrator. It polls the server's readiness endpoint and serves the
// last observed state on a separate port.
package main

import (
	"flag"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address for the probe")
	target := flag.String("target", "http://127.0.0.1:8080/readyz", "readiness URL of the main server")
	interval := flag.Duration("interval", 5*time.Second, "poll interval")
	flag.Parse()

	var ready atomic.Bool
	client := &fasthttp.Client{ReadTimeout: 3 * time.Second, WriteTimeout: 3 * time.Second}

	poll := func() {
		code, _, err := client.GetTimeout(nil, *target, 3*time.Second)
		ready.Store(err == nil && code == fasthttp.StatusOK)
	}
	poll()
	go func() {
		t := time.NewTicker(*interval)
		defer t.Stop()
		for range t.C {
			poll()
		}
	}()

	h := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health", "/healthz":
			ctx.Response.Header.Set("Content-Type", "application/json")
			if ready.Load() {
				ctx.SetStatusCode(fasthttp.StatusOK)
				_, _ = ctx.WriteString(`{"status":"ok"}`)
			} else {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				_, _ = ctx.WriteString(`{"status":"unreachable"}`)
			}
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	fmt.Printf("healthprobe listening on %s, watching %s\n", *addr, *target)
	srv := &fasthttp.Server{
		Handler:            h,
		Name:               "otterseal-healthprobe",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Printf("healthprobe exit: %v\n", err)
	}
}

// Package ponybridge connects an in-process Go application to a PonyDebugger
// gateway, so the gateway's console can inspect the application's HTTP
// traffic and evaluate expressions inside it.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          bridge.Client              │  Websocket link, reconnect loop,
//	│  (dial, register, pump, send)       │  serialized writes, pending commands
//	└─────────────────────────────────────┘
//	           ↓ decoded frames
//	┌─────────────────────────────────────┐
//	│        domain.Dispatcher            │  Command → exactly one Response,
//	│        domain.Registry              │  notifications → no reply
//	└─────────────────────────────────────┘
//	           ↓ "Domain.operation"
//	┌─────────────────────────────────────┐
//	│  Console   Network   Runtime        │  Log mirroring, request capture,
//	│                                     │  evaluation and object handles
//	└─────────────────────────────────────┘
//
// Domains emit events back through the client, which drops them (or holds
// them in a bounded outbox) while the gateway is unreachable. The bridge is
// an observability aid, not a durable event log.
//
// # Packages
//
//   - protocol: frame classification and encoding
//   - domain, domain/console, domain/network, domain/runtime: the domains
//   - remoteobject: handles for values shown in the console
//   - evaluator: per-console expression evaluation
//   - bridge: the connection manager and the process-wide default bridge
//   - intercept: net/http middleware feeding the Network domain
//   - config, errors, metric, health, pkg/cache, pkg/buffer, pkg/retry:
//     supporting infrastructure
//
// # Quick start
//
//	b, err := bridge.Default()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler = intercept.Middleware(b.Network, intercept.Options{})(handler)
//
// The cmd/ponybridge command runs a demo application wired this way.
package ponybridge

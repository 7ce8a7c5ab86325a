// Package api implements the HTTP control surface for the downlink service.
//
// This package provides:
//   - One POST route per device family (/ws503/, /ws558/, /ws156/) that
//     turns a JSON intent into a command frame and publishes it
//   - A WebSocket hub that relays publish outcomes to observers
//   - Optional bearer-token protection with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Prometheus exposition and a Swagger document
//
// # Responses
//
// Control routes answer 200 with {"message","command_hex"}, 400 when the
// intent is rejected before anything is sent, and 500 when the broker could
// not be reached or did not acknowledge the publish. A 200 means the broker
// accepted the downlink, not that the device acted on it.
package api

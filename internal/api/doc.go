// Package api provides the HTTP REST server for authd.
//
// It exposes registration, login, guest sessions, token refresh, and
// the protected user endpoints over a chi router with request ID,
// logging, recovery, CORS, and body-size middleware.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

// Package server provides the HTTP server for the who-can API.
//
// The server uses gorilla/mux for routing and wraps every request with
// gorilla/handlers access logging. Routes are registered by the endpoints
// subpackage:
//
//	w := whocan.New(s)
//	srv := server.NewServer(w, s, cfg, logger.Log, "0.0.0.0", "8080")
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
//   - GET / - status
//   - GET /health - store connectivity
//   - PUT /grants - allow
//   - DELETE /grants - disallow
//   - POST /grants/check - can
//
// Grant bodies are MongoDB Extended JSON objects with identifier, action
// and target fields. When a JWT secret is configured the /grants routes
// require an HS256 bearer token, and the write routes additionally require
// that the token subject can "manage" the target "grants".
package server

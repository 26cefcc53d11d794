package endpoints

import (
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/middleware"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	srv.Router.Use(middleware.ClientIdentity(srv.Config))

	RegisterStatusEndpoints(srv)
	RegisterGrantsEndpoints(srv)
}

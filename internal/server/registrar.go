package server

import (
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// RouteRegistrar attaches HTTP routes. protected already requires a
// valid credential; public does not.
type RouteRegistrar interface {
	RegisterRoutes(public, protected *gin.RouterGroup)
}

package profilematch

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/server"
)

// Registrar ties the profile match service into the HTTP router.
type Registrar struct {
	appCtx  *app.AppContext
	service *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx, service: NewService(appCtx)}
}

func (r *Registrar) RegisterRoutes(_, protected *gin.RouterGroup) {
	protected.GET("/profile-match/:userId/get-profile-matches", r.getProfileMatches)
}

func (r *Registrar) getProfileMatches(c *gin.Context) {
	res, err := r.service.ComputeMatches(c.Request.Context(), c.Param("userId"))
	if err != nil {
		server.Fail(c, r.appCtx.Logger, err)
		return
	}
	msg := "Matches found and updated"
	if !res.HasInterests {
		msg = "No interests found for this user"
	}
	server.OK(c, msg, "profileMatches", res.Matches)
}

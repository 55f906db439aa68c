package liking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/destined/internal/app"
	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/server"
	"github.com/oggyb/destined/internal/service"
)

// Registrar ties the liking service into the HTTP router.
type Registrar struct {
	appCtx  *app.AppContext
	service *Service
}

// NewRegistrar creates a new Registrar for the liking service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx, service: NewService(appCtx)}
}

type actionRequest struct {
	TargetUserID service.FlexID `json:"targetUserId"`
}

// RegisterRoutes attaches the /liking endpoints to the protected group.
func (r *Registrar) RegisterRoutes(_, protected *gin.RouterGroup) {
	g := protected.Group("/liking")
	g.POST("/:userId/like-user", r.likeUser)
	g.POST("/:userId/dislike-user", r.dislikeUser)
	g.GET("/get-all-likings", r.allLikings)
	g.GET("/:userId/liked-you", r.likedYou)
	g.GET("/:userId/like-count", r.likeCount)
}

func (r *Registrar) likeUser(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, r.appCtx.Logger, svcErr.InvalidArgument("Missing user IDs"))
		return
	}
	res, err := r.service.LikeUser(c.Request.Context(), c.Param("userId"), req.TargetUserID.String())
	if err != nil {
		server.Fail(c, r.appCtx.Logger, err)
		return
	}
	server.OK(c, "User Liked Successfully", "liking", res)
}

func (r *Registrar) dislikeUser(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, r.appCtx.Logger, svcErr.InvalidArgument("Missing user IDs"))
		return
	}
	res, err := r.service.DislikeUser(c.Request.Context(), c.Param("userId"), req.TargetUserID.String())
	if err != nil {
		server.Fail(c, r.appCtx.Logger, err)
		return
	}
	server.OK(c, "User disliked successfully", "liking", res)
}

func (r *Registrar) allLikings(c *gin.Context) {
	records, err := r.service.AllLikings(c.Request.Context())
	if err != nil {
		server.Fail(c, r.appCtx.Logger, err)
		return
	}
	server.OK(c, "Likings fetched successfully with current stats", "likings", records)
}

func (r *Registrar) likedYou(c *gin.Context) {
	var token *string
	if t := c.Query("paginationToken"); t != "" {
		token = &t
	}
	page, err := r.service.ListLikedYou(c.Request.Context(), c.Param("userId"), token)
	if err != nil {
		server.Fail(c, r.appCtx.Logger, err)
		return
	}
	server.OK(c, "Liked-you list fetched successfully", "likedYou", page)
}

func (r *Registrar) likeCount(c *gin.Context) {
	n, err := r.service.CountLikedYou(c.Request.Context(), c.Param("userId"))
	if err != nil {
		server.Fail(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
}

// Package server assembles the HTTP API: route groups, middleware order,
// CORS policy.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/mhalushka/rolodex/internal/auth"
	"github.com/mhalushka/rolodex/internal/channels"
	"github.com/mhalushka/rolodex/internal/config"
	"github.com/mhalushka/rolodex/internal/contactchannels"
	"github.com/mhalushka/rolodex/internal/contacts"
	"github.com/mhalushka/rolodex/internal/health"
	"github.com/mhalushka/rolodex/internal/ratelimit"
)

// Deps carries everything the router mounts. main builds the real set,
// tests swap in fakes.
type Deps struct {
	Config          *config.Config
	Auth            *auth.Service
	EmailTokens     *auth.EmailTokens
	Users           auth.UserStore
	Contacts        contacts.Store
	Channels        channels.Store
	ContactChannels contactchannels.Store
	AvatarStorage   auth.AvatarStorage
	Avatars         auth.AvatarSource
	Enqueuer        auth.ConfirmationEnqueuer
	Limiter         *ratelimit.Limiter
}

// NewRouter builds the gin engine with every route mounted. On limited routes
// the rate limiter runs before authentication, so over-limit requests are
// rejected without a token check.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(d.Config.CORSAllowedOrigins))

	r.GET("/health", gin.WrapF(health.Handler))

	rl := d.Limiter.Middleware()
	requireAuth := auth.RequireAuth(d.Auth)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/users", rl, auth.SignupHandler(d.Users, d.Avatars, d.Enqueuer))
		authGroup.DELETE("/users/:email", rl, requireAuth, auth.DeleteUserHandler(d.Users))
		authGroup.POST("/access_token", rl, auth.LoginHandler(d.Auth))
		authGroup.GET("/refresh_token", rl, auth.RefreshHandler(d.Auth))
		// Confirmation links are opened from email clients, not by the API
		// consumer, and stay outside the rate limit.
		authGroup.GET("/confirmed_email/:token", auth.ConfirmEmailHandler(d.EmailTokens, d.Users))
		authGroup.PATCH("/avatar", rl, requireAuth, auth.AvatarHandler(d.Users, d.AvatarStorage))
	}

	contactsGroup := r.Group("/contacts", rl, requireAuth)
	{
		contactsGroup.GET("", contacts.ListHandler(d.Contacts))
		contactsGroup.GET("/birthdays", contacts.BirthdaysHandler(d.Contacts))
		contactsGroup.GET("/:contactId", contacts.GetHandler(d.Contacts))
		contactsGroup.POST("", contacts.CreateHandler(d.Contacts))
		contactsGroup.PUT("/:contactId", contacts.UpdateHandler(d.Contacts))
		contactsGroup.DELETE("/:contactId", contacts.DeleteHandler(d.Contacts))
	}

	channelsGroup := r.Group("/channels", rl, requireAuth)
	{
		channelsGroup.GET("", channels.ListHandler(d.Channels))
		channelsGroup.GET("/:channelId", channels.GetHandler(d.Channels))
		channelsGroup.POST("", channels.CreateHandler(d.Channels))
		channelsGroup.PUT("/:channelId", channels.UpdateHandler(d.Channels))
		channelsGroup.DELETE("/:channelId", channels.DeleteHandler(d.Channels))
	}

	ccGroup := r.Group("/contactsChannels", rl, requireAuth)
	{
		ccGroup.GET("", contactchannels.ListHandler(d.ContactChannels))
		ccGroup.GET("/:contactChannelId", contactchannels.GetHandler(d.ContactChannels))
		ccGroup.POST("", contactchannels.CreateHandler(d.ContactChannels))
		ccGroup.PUT("/:contactChannelId", contactchannels.UpdateHandler(d.ContactChannels))
		ccGroup.DELETE("/:contactChannelId", contactchannels.DeleteHandler(d.ContactChannels))
	}

	return r
}

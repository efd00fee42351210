package router

import (
	"github.com/fxoffice/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the handlers served under the authenticated API prefix
type Handlers struct {
	Organization *handler.OrganizationHandler
	Repository   *handler.RepositoryHandler
	Currency     *handler.CurrencyHandler
	Customer     *handler.CustomerHandler
	Session      *handler.SessionHandler
	Order        *handler.OrderHandler
	Note         *handler.NoteHandler
}

// APIGroups builds the domain route groups. requireTenant guards every group that
// operates inside the active organization; organization bootstrap routes skip it.
func APIGroups(h Handlers, requireTenant gin.HandlerFunc) []*DomainGroup {
	identity := NewDomainGroup("identity", "/organizations")
	identity.POST("", h.Organization.Create)
	identity.GET("", h.Organization.ListMine)
	identity.GET("/:id", h.Organization.Get)
	identity.PUT("/:id", h.Organization.Update)
	identity.DELETE("/:id", h.Organization.Delete)
	identity.GET("/:id/members", h.Organization.ListMembers)
	identity.POST("/:id/members", h.Organization.AddMember)
	identity.PUT("/:id/members/:user_id", h.Organization.UpdateMemberRole)
	identity.DELETE("/:id/members/:user_id", h.Organization.RemoveMember)

	sessions := NewDomainGroup("sessions", "/sessions")
	sessions.PUT("/active-organization", h.Organization.SetActiveOrganization)

	repositories := NewDomainGroup("vault", "/repositories").Use(requireTenant)
	repositories.POST("", h.Repository.Create)
	repositories.GET("", h.Repository.List)
	repositories.GET("/:id", h.Repository.Get)
	repositories.PUT("/:id", h.Repository.Update)
	repositories.DELETE("/:id", h.Repository.Delete)
	repositories.POST("/:id/activate", h.Repository.Activate)
	repositories.POST("/:id/deactivate", h.Repository.Deactivate)
	repositories.GET("/:id/authorized-users", h.Repository.ListAuthorizedUsers)
	repositories.POST("/:id/authorized-users", h.Repository.AuthorizeUser)
	repositories.DELETE("/:id/authorized-users/:user_id", h.Repository.RevokeUser)
	repositories.GET("/:id/active-session", h.Session.ActiveForRepository)

	currencies := NewDomainGroup("currencies", "/currencies").Use(requireTenant)
	currencies.POST("", h.Currency.Create)
	currencies.GET("", h.Currency.List)
	currencies.POST("/rates/refresh", h.Currency.RefreshRates)
	currencies.GET("/code/:code", h.Currency.GetByCode)
	currencies.GET("/:id", h.Currency.Get)
	currencies.PUT("/:id", h.Currency.Update)
	currencies.DELETE("/:id", h.Currency.Delete)
	currencies.PUT("/:id/rate", h.Currency.SetRate)
	currencies.PUT("/:id/margins", h.Currency.SetMargins)
	currencies.POST("/:id/denominations", h.Currency.AddDenomination)
	currencies.PATCH("/:id/denominations/:denomination_id", h.Currency.SetDenominationActive)
	currencies.DELETE("/:id/denominations/:denomination_id", h.Currency.RemoveDenomination)

	customers := NewDomainGroup("partner", "/customers").Use(requireTenant)
	customers.POST("", h.Customer.Create)
	customers.GET("", h.Customer.List)
	customers.GET("/kyc-counts", h.Customer.KYCCounts)
	customers.GET("/:id", h.Customer.Get)
	customers.PUT("/:id", h.Customer.Update)
	customers.DELETE("/:id", h.Customer.Delete)
	customers.PUT("/:id/address", h.Customer.UpdateAddress)
	customers.POST("/:id/verify", h.Customer.Verify)
	customers.POST("/:id/reject", h.Customer.Reject)
	customers.POST("/:id/identifications", h.Customer.AddIdentification)
	customers.DELETE("/:id/identifications/:identification_id", h.Customer.RemoveIdentification)
	customers.POST("/:id/identifications/:identification_id/primary", h.Customer.SetPrimaryIdentification)
	customers.POST("/:id/identifications/:identification_id/document/upload-url", h.Customer.DocumentUploadURL)
	customers.GET("/:id/identifications/:identification_id/document/download-url", h.Customer.DocumentDownloadURL)

	float := NewDomainGroup("float", "/cx-sessions").Use(requireTenant)
	float.POST("", h.Session.Create)
	float.GET("", h.Session.List)
	float.GET("/:id", h.Session.Get)
	float.GET("/:id/summary", h.Session.Summary)
	float.POST("/:id/open/start", h.Session.StartOpen)
	float.POST("/:id/open/complete", h.Session.CompleteOpen)
	float.POST("/:id/close/start", h.Session.StartClose)
	float.POST("/:id/close/cancel", h.Session.CancelClose)
	float.POST("/:id/close/complete", h.Session.CompleteClose)
	float.PUT("/:id/stacks/:stack_id/open-count", h.Session.RecordOpenCount)
	float.POST("/:id/stacks/:stack_id/open-confirm", h.Session.ConfirmOpenStack)
	float.PUT("/:id/stacks/:stack_id/midday-count", h.Session.RecordMiddayCount)
	float.PUT("/:id/stacks/:stack_id/close-count", h.Session.RecordCloseCount)
	float.POST("/:id/stacks/:stack_id/close-confirm", h.Session.ConfirmCloseStack)

	orders := NewDomainGroup("trade", "/orders").Use(requireTenant)
	orders.POST("", h.Order.CreateQuote)
	orders.GET("", h.Order.List)
	orders.GET("/:id", h.Order.Get)
	orders.POST("/:id/complete", h.Order.Complete)
	orders.POST("/:id/cancel", h.Order.Cancel)
	orders.GET("/:id/receipt", h.Order.Receipt)

	notes := NewDomainGroup("notes", "/notes").Use(requireTenant)
	notes.POST("", h.Note.Create)
	notes.GET("", h.Note.List)
	notes.PUT("/:id", h.Note.Update)
	notes.DELETE("/:id", h.Note.Delete)

	return []*DomainGroup{identity, sessions, repositories, currencies, customers, float, orders, notes}
}

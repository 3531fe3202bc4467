package controllers

import (
	"crypto/rsa"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/poofware/inventory-service/internal/metrics"
	"github.com/poofware/inventory-service/internal/middleware"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/routes"
)

// Handlers bundles every controller the API mounts.
type Handlers struct {
	Health         *HealthController
	Auth           *AuthController
	Property       *PropertyController
	AccountRequest *AccountRequestController
	QR             *QRController
	WS             *WSController
	Metrics        http.Handler
}

// RegisterRoutes mounts the API under routes.Base on r and returns the
// subrouter. Static property paths are registered before the {id} routes.
func RegisterRoutes(r *mux.Router, pub *rsa.PublicKey, m *metrics.Metrics, h Handlers) *mux.Router {
	api := r.PathPrefix(routes.Base).Subrouter()
	api.Use(middleware.MetricsMiddleware(m))

	// Public
	api.HandleFunc(routes.Health, h.Health.HealthCheckHandler).Methods(http.MethodGet)
	if h.Metrics != nil {
		api.Handle(routes.Metrics, h.Metrics).Methods(http.MethodGet)
	}
	api.HandleFunc(routes.AuthLogin, h.Auth.LoginHandler).Methods(http.MethodPost)
	api.HandleFunc(routes.AuthRegisterOTP, h.Auth.RequestOTPHandler).Methods(http.MethodPost)
	api.HandleFunc(routes.AuthRegisterVerify, h.Auth.VerifyOTPHandler).Methods(http.MethodPost)
	api.HandleFunc(routes.AccountRequests, h.AccountRequest.CreateHandler).Methods(http.MethodPost)

	// Any signed-in user
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.AuthMiddleware(pub))
	authed.HandleFunc(routes.AuthChangePassword, h.Auth.ChangePasswordHandler).Methods(http.MethodPost)
	authed.HandleFunc(routes.WebSocket, h.WS.ServeWSHandler).Methods(http.MethodGet)
	authed.HandleFunc(routes.PropertyByCode, h.Property.GetByCodeHandler).Methods(http.MethodGet)
	authed.HandleFunc(routes.PropertyBorrow, h.Property.BorrowHandler).Methods(http.MethodPost)
	authed.HandleFunc(routes.PropertyReturn, h.Property.ReturnHandler).Methods(http.MethodPost)
	authed.HandleFunc(routes.PropertyQR, h.QR.UnitQRHandler).Methods(http.MethodGet)

	// Admin
	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.AuthMiddleware(pub), middleware.RequireRole(string(models.RoleAdmin)))
	admin.HandleFunc(routes.Properties, h.Property.ListGroupedHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.Properties, h.Property.CreateHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.PropertyUnits, h.Property.ListUnitsHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.PropertyCategories, h.Property.ListCategoriesHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.PropertiesBorrowed, h.Property.ListBorrowedHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.PropertiesOverdue, h.Property.ListOverdueHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.PropertiesHistory, h.Property.ListHistoryHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.PropertiesBulkDelete, h.Property.BulkDeleteHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.PropertyByID, h.Property.GetDetailHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.PropertyByID, h.Property.UpdateHandler).Methods(http.MethodPut)
	admin.HandleFunc(routes.PropertyByID, h.Property.DeleteHandler).Methods(http.MethodDelete)
	admin.HandleFunc(routes.AccountRequests, h.AccountRequest.ListHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AccountRequestCounts, h.AccountRequest.CountsHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AccountRequestApprove, h.AccountRequest.ApproveHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AccountRequestReject, h.AccountRequest.RejectHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AccountRequestByID, h.AccountRequest.DeleteHandler).Methods(http.MethodDelete)

	return api
}

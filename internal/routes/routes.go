package routes

const (
	Base = "/api/v1/inventory"

	// Public
	Health             = "/health"
	Metrics            = "/metrics"
	AuthLogin          = "/auth/login"
	AuthRegisterOTP    = "/auth/register/request_otp"
	AuthRegisterVerify = "/auth/register/verify_otp"
	AccountRequests    = "/account-requests"

	// Any signed-in user
	AuthChangePassword = "/auth/change_password"
	WebSocket          = "/ws"
	PropertyByCode     = "/properties/code/{code}"
	PropertyBorrow     = "/properties/{id:" + uuidPattern + "}/borrow"
	PropertyReturn     = "/properties/{id:" + uuidPattern + "}/return"
	PropertyQR         = "/properties/{id:" + uuidPattern + "}/qr"

	// Admin
	Properties            = "/properties"
	PropertyUnits         = "/properties/units"
	PropertyCategories    = "/properties/categories"
	PropertiesBorrowed    = "/properties/borrowed"
	PropertiesOverdue     = "/properties/overdue"
	PropertiesHistory     = "/properties/history"
	PropertiesBulkDelete  = "/properties/bulk-delete"
	PropertyByID          = "/properties/{id:" + uuidPattern + "}"
	AccountRequestCounts  = "/account-requests/counts"
	AccountRequestByID    = "/account-requests/{id:" + uuidPattern + "}"
	AccountRequestApprove = "/account-requests/{id:" + uuidPattern + "}/approve"
	AccountRequestReject  = "/account-requests/{id:" + uuidPattern + "}/reject"

	uuidPattern = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"
)

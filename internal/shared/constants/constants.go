package constants

// Runtime environments
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Database table names
const (
	TableSubscriptions        = "subscriptions"
	TableSubscriptionProducts = "subscription_products"
	TableDeliveryEntries      = "delivery_entries"
	TableCatalogProducts      = "catalog_products"
)

// Gin context keys
const (
	ContextKeyUserID      = "user_id"
	ContextKeyUserRole    = "user_role"
	ContextKeyCustomerSID = "customer_sid"
	ContextKeyPartnerSID  = "partner_sid"
)

// Pagination limits
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Actor roles carried by the identity provider's token.
const (
	RoleCustomer = "customer"
	RolePartner  = "partner"
	RoleAdmin    = "admin"
)

package models

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Payment record statuses. Pending and confirmed share values with appointments.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentExpired   = "expired"
)

const (
	PlanEssential = "essential"
	PlanComplete  = "complete"
)

const (
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

const (
	PaymentMethodPix  = "pix"
	PaymentMethodCard = "card"
	PaymentMethodCash = "cash"
)

// CategoryServices is the category of income created automatically from appointments.
const CategoryServices = "Serviços"

const (
	FeatureAppointments     = "appointments"
	FeatureFinances         = "finances"
	FeatureWhatsApp         = "whatsapp"
	FeatureReports          = "reports"
	FeatureAdvancedServices = "advanced-services"
	FeatureBasicServices    = "basic-services"
)

const (
	// DefaultOpenTime and DefaultCloseTime bound the schedule of a newly registered tenant.
	DefaultOpenTime  = "08:00"
	DefaultCloseTime = "18:00"

	// DefaultMaxBookingDays how far ahead the public page accepts bookings.
	DefaultMaxBookingDays = 30

	// DefaultSettingsCacheTTL time-to-live of cached admin settings, in seconds.
	DefaultSettingsCacheTTL = 10 * 60

	// BookingRateLimit public booking attempts per phone within BookingRateWindow.
	BookingRateLimit  = 5
	BookingRateWindow = 10 * 60 // seconds

	// DefaultPaymentMaxAge hours after which an unconfirmed payment expires.
	DefaultPaymentMaxAge = 72

	// ExpiringSoonDays threshold for the plan renewal warning.
	ExpiringSoonDays = 3
)

// DefaultOperatingDays is monday through saturday.
var DefaultOperatingDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

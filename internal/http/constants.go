package httpx

// Page identifiers returned by the guarded landing routes. Screens behind them
// are rendered by the frontend; the portal only decides who may open them.
const (
	PageLogin              = "login"
	PageUserDashboard      = "user-dashboard"
	PageChangePin          = "change-pin"
	PageTreasuryDashboard  = "treasury-dashboard"
	PageAccountingHome     = "accounting-home"
	PageSysadDashboard     = "sysad-dashboard"
	PageMotorpoolDashboard = "motorpool"
	PageMerchantDashboard  = "merchant"
)

// Rate limit defaults applied when RouterServices leaves them unset.
const (
	DefaultPinAttemptsPerMinute = 10
	DefaultOTPRequestsPerMinute = 5
)

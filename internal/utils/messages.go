package utils

// User-visible message catalog. Internal error detail (driver codes,
// stack context) is logged server-side and never placed in these.
const (
	MsgInternalError = "An unexpected error occurred. Please try again later."
	MsgAccessDenied  = "Access denied"

	MsgUserNotFound  = "Account does not exist. Please check your email address or username."
	MsgWrongPassword = "Password is incorrect."
	MsgUserNotActive = "Account not activated."

	MsgTokenCreated    = "Token created successfully"
	MsgLogoutOK        = "Logout successful"
	MsgTokenRefreshed  = "Access token refreshed successfully"
	MsgInvalidRefresh  = "Invalid refresh token"
	MsgInvalidRequest  = "Invalid request"
	MsgPasswordToEdit  = "Please enter your current password to update information."
	MsgDeleteSuperRole = "Cannot delete super admin role."
)

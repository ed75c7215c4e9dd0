package server

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	RouteHome = "/{$}"

	// Auth Routes - Login & Logout
	RouteLogin    = "/login"
	RouteLogout   = "/logout"
	RouteRegister = "/register"

	// Auth Routes - Email Verification
	RouteVerifyEmail = "/verify-email"

	// Auth Routes - Google
	RouteGoogleAuth   = "/auth/google"
	RouteOAuthSuccess = "/oauth-success"

	// Vocabulary Routes
	RouteVocabularies = "/vocabularies"
	RouteCategories   = "/categories"

	// Admin Routes
	RouteAdmin = "/admin"

	RouteHealth = "/healthz"
)

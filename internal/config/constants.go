package config

import "time"

const (
	// Verification codes
	VerificationCodeLength = 6
	VerificationCodeTTL    = 5 * time.Minute

	// Passwords
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores anything longer

	// Tokens
	DefaultAccessTokenTTL  = 1 * time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	RefreshTokenBytes      = 32
	DefaultJWTIssuer       = "roomresq-service"

	// Requests
	DefaultRequestTimeout = 5 * time.Second
	ClientRequestTimeout  = 10 * time.Second

	// Redis keys and channels
	VerificationKeyPrefix = "otp:"
	RefreshKeyPrefix      = "refresh:"
	EventChannel          = "complaints:events"

	// Live updates
	ClientSendBuffer = 32
)

// PriorityWeights orders the staff queue when two complaints are otherwise equal.
var PriorityWeights = map[string]int{
	"Low":    1,
	"Medium": 2,
	"High":   3,
	"Urgent": 4,
}

package identity

import "time"

// LoginSession is the server-side record backing a login token. Its presence
// in the session store is what makes logout immediate: deleting the record
// invalidates the token before its expiry.
type LoginSession struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

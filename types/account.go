package types

// Account represents a registered operator of the calculator.
// Each account owns exactly one project ledger.
type Account struct {
	// ID is the unique identifier of the account.
	ID int64 `json:"id" db:"id"`

	// Username is the unique login name chosen at registration.
	Username string `json:"username" db:"name"`

	// Role is the authorization level ("user" or "admin").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the salted password verifier.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdmin reports whether the account may manage other accounts.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

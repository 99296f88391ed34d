package entity

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the lifecycle state stored in users.account_status.
type AccountStatus string

const (
	StatusPending  AccountStatus = "pending"
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
	StatusLocked   AccountStatus = "locked"
)

// Role is the staff/customer role of an account.
type Role string

const (
	RoleCustomer         Role = "customer"
	RoleAccountExecutive Role = "account_executive"
	RoleBranchManager    Role = "branch_manager"
	RoleTeller           Role = "teller"
	RoleAdmin            Role = "admin"
	RoleSuperAdmin       Role = "super_admin"
)

// User represents an account row in the `users` table.
// HashedPassword is never the plaintext. OTP is empty when none is pending.
type User struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	Username            string        `db:"username" json:"username"`
	Email               string        `db:"email" json:"email"`
	IDNo                string        `db:"id_no" json:"id_no"`
	FirstName           string        `db:"first_name" json:"first_name"`
	MiddleName          string        `db:"middle_name" json:"middle_name,omitempty"`
	LastName            string        `db:"last_name" json:"last_name"`
	SecurityQuestion    string        `db:"security_question" json:"-"`
	SecurityAnswer      string        `db:"security_answer" json:"-"`
	Role                Role          `db:"role" json:"role"`
	HashedPassword      string        `db:"hashed_password" json:"-"`
	IsActive            bool          `db:"is_active" json:"is_active"`
	AccountStatus       AccountStatus `db:"account_status" json:"account_status"`
	OTP                 string        `db:"otp" json:"-"`
	OTPExpiryTime       *time.Time    `db:"otp_expiry_time" json:"-"`
	FailedLoginAttempts int           `db:"failed_login_attempts" json:"-"`
	LastFailedLogin     *time.Time    `db:"last_failed_login" json:"-"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins the non-empty name parts.
func (u *User) FullName() string {
	name := u.FirstName
	if u.MiddleName != "" {
		name += " " + u.MiddleName
	}
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

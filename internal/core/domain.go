package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type (
	TransactionType string

	Role string

	Date struct {
		time.Time
	}

	// Transaction is a single income or expense record owned by one user.
	// Amount is a non-negative integer in the smallest currency unit.
	Transaction struct {
		ID          string
		UserID      string
		Description string
		Type        TransactionType
		Amount      int64
		Date        Date
		CreatedAt   time.Time
	}

	User struct {
		ID           string
		Email        string
		Name         string
		PasswordHash string
		PIN          string
		PINEnabled   bool
		Role         Role
		CreatedAt    time.Time
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidPIN       = errors.New("PIN must be exactly 4 digits")
	ErrInvalidRole      = errors.New("role must be user or admin")
	ErrNotFound         = errors.New("not found")
	ErrEmailTaken       = errors.New("email already registered")
)

var (
	pinPattern   = regexp.MustCompile(`^\d{4}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// DateLayout is the wire format for transaction dates.
const DateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date in wire format.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YEAR-MONTH bucket key (e.g. "2024-02").
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Signed returns the amount with the sign implied by the transaction
// type: positive for income, negative for expense.
func (t Transaction) Signed() int64 {
	if t.Type == Income {
		return t.Amount
	}
	return -t.Amount
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount < 0 {
		return ErrNegativeAmount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidatePIN checks the 4-digit PIN format. An empty PIN is allowed
// and clears a previously configured one.
func ValidatePIN(pin string) error {
	if pin == "" {
		return nil
	}
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPIN
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address for storage
// and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (u User) Validate() error {
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if len(strings.TrimSpace(u.Name)) == 0 {
		return errors.New("empty name")
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

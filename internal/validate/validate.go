package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"marketplacetg/internal/domain"
)

const (
	MaxPrice       = 10_000_000
	MaxStock       = 1000
	MaxQty         = 1000
	MaxImageBytes  = 5 << 20
	OTPLength      = 6
	minProductName = 3
	maxProductName = 100
	minDescription = 10
	maxDescription = 2000
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[\p{L}0-9 _'\-]{1,50}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	// Togolese numbers: country code then eight digits.
	rePhone = regexp.MustCompile(`^\+228[0-9]{8}$`)
)

func runes(s string) int { return utf8.RuneCountInString(s) }

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 100 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if runes(s) > 50 {
		s = string([]rune(s)[:50])
	}
	return s, reQ.MatchString(s)
}

// Qty accepts a positive line quantity.
func Qty(n int) (int, bool) { return n, n >= 1 && n <= MaxQty }

// Delta accepts a non-zero quantity change.
func Delta(n int) (int, bool) { return n, n != 0 && n >= -MaxQty && n <= MaxQty }

// ID validates a simple resource identifier (product/order/user ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Name validates a person's first or last name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || runes(s) > 50 {
		return "", false
	}
	return s, true
}

func ShopName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	n := runes(s)
	return s, n >= 2 && n <= 100
}

func ShopDescription(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, runes(s) <= maxDescription
}

func ProductName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	n := runes(s)
	return s, n >= minProductName && n <= maxProductName
}

func Description(s string) (string, bool) {
	s = strings.TrimSpace(s)
	n := runes(s)
	return s, n >= minDescription && n <= maxDescription
}

// Price accepts a decimal amount in (0, MaxPrice].
func Price(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, d.IsPositive() && d.LessThanOrEqual(decimal.NewFromInt(MaxPrice))
}

func Stock(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, n >= 0 && n <= MaxStock
}

func Category(s string) (domain.Category, bool) {
	c := domain.Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

func Phone(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	return s, rePhone.MatchString(s)
}

func OTP(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, runes(s) == OTPLength
}

// SignupRole accepts the roles open to self registration.
func SignupRole(s string) (domain.Role, bool) {
	r := domain.Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r == domain.RoleBuyer || r == domain.RoleSeller
}

func Role(s string) (domain.Role, bool) {
	r := domain.Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func PaymentMethod(s string) (domain.PaymentMethod, bool) {
	m := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

func OrderStatus(s string) (domain.OrderStatus, bool) {
	st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

func CommissionStatus(s string) (domain.CommissionStatus, bool) {
	st := domain.CommissionStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Text validates a required free-text field of at most limit runes.
func Text(s string, limit int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && runes(s) <= limit
}

// Optional validates an optional free-text field of at most limit runes.
func Optional(s string, limit int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, runes(s) <= limit
}

// Password enforces length and character class rules for new passwords.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/validate"
)

// ErrBadCreds hides whether the email or the password was wrong.
const ErrBadCreds = errors.ConstError("invalid email or password")

type AuthService struct {
	Users *repos.UserRepo
	Cart  *CartService
}

// Registration is the sign-up form.
type Registration struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	Phone           string
	Role            string
	ShopName        string
	ShopDescription string
}

func (s *AuthService) Register(ctx context.Context, r Registration) (domain.User, error) {
	email, ok := validate.Email(r.Email)
	if !ok {
		return domain.User{}, errors.NotValidf("email")
	}
	if !validate.Password(r.Password) {
		return domain.User{}, errors.NotValidf("password")
	}
	first, ok := validate.Name(r.FirstName)
	if !ok {
		return domain.User{}, errors.NotValidf("first name")
	}
	last, ok := validate.Name(r.LastName)
	if !ok {
		return domain.User{}, errors.NotValidf("last name")
	}
	role, ok := validate.SignupRole(r.Role)
	if !ok {
		return domain.User{}, errors.NotValidf("account type %q", r.Role)
	}
	phone := ""
	if strings.TrimSpace(r.Phone) != "" {
		if phone, ok = validate.Phone(r.Phone); !ok {
			return domain.User{}, errors.NotValidf("phone number")
		}
	}
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		FirstName: first,
		LastName:  last,
		Phone:     phone,
		Role:      role,
		Active:    true,
		CreatedAt: nowStamp(),
	}
	if role == domain.RoleSeller {
		if u.ShopName, ok = validate.ShopName(r.ShopName); !ok {
			return domain.User{}, errors.NotValidf("shop name")
		}
		if u.ShopDescription, ok = validate.ShopDescription(r.ShopDescription); !ok {
			return domain.User{}, errors.NotValidf("shop description")
		}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, errors.Trace(err)
	}
	u.Hash = string(h)
	if err := s.Users.Create(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Login checks credentials, binds the session to the user and moves any
// anonymous cart of the session into the user's saved cart.
func (s *AuthService) Login(ctx context.Context, sid, email, password string, remember bool) (domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, errors.NotFound) {
		return domain.User{}, ErrBadCreds
	}
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return domain.User{}, ErrBadCreds
	}
	if !u.Active {
		return domain.User{}, errors.Forbiddenf("account disabled")
	}
	if err := s.Users.BindSession(ctx, sid, u.ID, remember); err != nil {
		return domain.User{}, err
	}
	_ = s.Users.Touch(ctx, u.ID)
	if s.Cart != nil {
		if err := s.Cart.MergeOnLogin(ctx, sid, u.ID); err != nil {
			return domain.User{}, errors.Annotate(err, "merge cart")
		}
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

// CurrentUser restores the identity behind a session cookie. Deactivated
// accounts are treated as signed out.
func (s *AuthService) CurrentUser(ctx context.Context, sid string) (domain.User, error) {
	u, err := s.Users.SessionUser(ctx, sid)
	if err != nil {
		return domain.User{}, err
	}
	if !u.Active {
		return domain.User{}, errors.Unauthorizedf("account disabled")
	}
	return u, nil
}

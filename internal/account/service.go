// Package account handles registration, login and logout. Every local rule
// is checked before the backend is contacted; the first failing rule is the
// message shown to the user.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/notify"
)

const (
	MsgNameTooShort      = "El nombre debe tener al menos 3 caracteres."
	MsgEmailMissing      = "Debes ingresar y confirmar el correo."
	MsgEmailMismatch     = "Los correos deben coincidir."
	MsgEmailInvalid      = "Ingresa un correo válido."
	MsgEmailDomain       = "Dominio de correo inválido."
	MsgPasswordLength    = "La contraseña debe tener entre 5 y 10 caracteres."
	MsgPasswordMismatch  = "Las contraseñas deben coincidir."
	MsgRegionMissing     = "Debes seleccionar región y comuna."
	MsgComunaMismatch    = "La comuna no pertenece a la región seleccionada."
	MsgEmailTaken        = "El correo ya está registrado."
	MsgRegisterFailed    = "Error al registrar usuario en el servidor."
	MsgLoginFieldsNeeded = "Por favor completa todos los campos."
	MsgBadCredentials    = "Correo o contraseña incorrecta."
)

var (
	ErrInvalidCredentials   = errors.New(MsgBadCredentials)
	ErrConfirmationRequired = errors.New("logout must be confirmed")
)

// FormError is a banner message for a rule the input broke.
type FormError struct{ Message string }

func (e *FormError) Error() string { return e.Message }

func formErr(msg string) error { return &FormError{Message: msg} }

type API interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	RegisterUser(ctx context.Context, u model.User) (model.User, error)
	Login(ctx context.Context, email, pass string) (model.User, error)
}

// Sessions is satisfied by *session.Store.
type Sessions interface {
	Create(ctx context.Context, u model.User) (string, error)
	Delete(ctx context.Context, token string) error
}

type Service struct {
	API            API
	Sessions       Sessions
	Notify         notify.Notifier
	Regions        *Regions
	AllowedDomains []string
	Log            *zap.Logger
}

type Registration struct {
	Name            string `json:"nombre"`
	Email           string `json:"correo"`
	EmailConfirm    string `json:"correoConfirm"`
	Password        string `json:"pass"`
	PasswordConfirm string `json:"passConfirm"`
	Phone           string `json:"telefono"`
	Region          string `json:"region"`
	Comuna          string `json:"comuna"`
}

var emailCheck = validator.New()

// Check runs the local rules in order.
func (s *Service) Check(in Registration) error {
	switch {
	case utf8.RuneCountInString(strings.TrimSpace(in.Name)) < 3:
		return formErr(MsgNameTooShort)
	case in.Email == "" || in.EmailConfirm == "":
		return formErr(MsgEmailMissing)
	case in.Email != in.EmailConfirm:
		return formErr(MsgEmailMismatch)
	case emailCheck.Var(in.Email, "email") != nil:
		return formErr(MsgEmailInvalid)
	case !s.domainAllowed(in.Email):
		return formErr(MsgEmailDomain)
	}
	if n := utf8.RuneCountInString(in.Password); n < 5 || n > 10 {
		return formErr(MsgPasswordLength)
	}
	if in.Password != in.PasswordConfirm {
		return formErr(MsgPasswordMismatch)
	}
	if in.Region == "" || in.Comuna == "" {
		return formErr(MsgRegionMissing)
	}
	if s.Regions != nil && !s.Regions.Has(in.Region, in.Comuna) {
		return formErr(MsgComunaMismatch)
	}
	return nil
}

func (s *Service) domainAllowed(email string) bool {
	email = strings.ToLower(email)
	for _, d := range s.AllowedDomains {
		if strings.HasSuffix(email, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// Register creates the backend user and logs them in.
func (s *Service) Register(ctx context.Context, in Registration) (model.User, string, error) {
	if err := s.Check(in); err != nil {
		return model.User{}, "", err
	}
	log := logx.OrNop(s.Log)

	users, err := s.API.ListUsers(ctx)
	if err != nil {
		return model.User{}, "", err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, in.Email) {
			return model.User{}, "", formErr(MsgEmailTaken)
		}
	}

	created, err := s.API.RegisterUser(ctx, model.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: in.Password,
		Phone:    in.Phone,
		Region:   in.Region,
		Comuna:   in.Comuna,
	})
	if err != nil {
		log.Warn("register failed", zap.String("email", in.Email), zap.Error(err))
		if errors.Is(err, backend.ErrUnreachable) {
			return model.User{}, "", err
		}
		return model.User{}, "", formErr(MsgRegisterFailed)
	}
	return s.start(ctx, created)
}

func (s *Service) Login(ctx context.Context, email, pass string) (model.User, string, error) {
	if strings.TrimSpace(email) == "" || pass == "" {
		return model.User{}, "", formErr(MsgLoginFieldsNeeded)
	}
	u, err := s.API.Login(ctx, email, pass)
	if err != nil {
		if backend.IsClientError(err) || errors.Is(err, backend.ErrNoUser) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", err
	}
	return s.start(ctx, u)
}

func (s *Service) start(ctx context.Context, u model.User) (model.User, string, error) {
	token, err := s.Sessions.Create(ctx, u)
	if err != nil {
		return model.User{}, "", fmt.Errorf("start session: %w", err)
	}
	s.changed(ctx, u.ID)
	return u.Sanitized(), token, nil
}

// Logout ends the session only when the user confirmed it.
func (s *Service) Logout(ctx context.Context, token, userID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := s.Sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	s.changed(ctx, userID)
	return nil
}

func (s *Service) changed(ctx context.Context, userID string) {
	if s.Notify != nil && userID != "" {
		s.Notify.Notify(ctx, notify.Event{Kind: notify.SessionChanged, UserID: userID})
	}
}

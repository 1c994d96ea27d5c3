package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lexdesk/internal/model"
	"lexdesk/internal/pkg/jwtutil"
	"lexdesk/internal/repository"
)

var (
	ErrEmailExists       = errors.New("email already exists")
	ErrCardExists        = errors.New("professional card already registered")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrUserNotFound      = errors.New("user not found")
)

const minPasswordLength = 8

type AuthService struct {
	userRepo      *repository.UserRepository
	subRepo       *repository.SubscriptionRepository
	geoRepo       *repository.GeoRepository
	mailer        Mailer
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger
	now           Clock
}

type RegisterInput struct {
	Name      string
	LastName  string
	Email     string
	Password  string
	Phone     string
	CountryID *uint
	StateID   *uint
	CityID    *uint
}

type RegisterLawyerInput struct {
	RegisterInput
	ProfessionalCardNumber string
	BarAssociation         string
	Specialty              string
	YearsExperience        int
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *model.User    `json:"user"`
	Plan      model.PlanType `json:"plan,omitempty"`
}

type Profile struct {
	*model.User
	Plan model.PlanType `json:"plan,omitempty"`
}

func NewAuthService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	geoRepo *repository.GeoRepository,
	mailer Mailer,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		subRepo:       subRepo,
		geoRepo:       geoRepo,
		mailer:        mailer,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
		now:           systemClock,
	}
}

func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func (s *AuthService) validateBase(input *RegisterInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Phone = strings.TrimSpace(input.Phone)
	email, ok := normalizeEmail(input.Email)
	if !ok || input.Name == "" || len(input.Password) < minPasswordLength {
		return ErrInvalidInput
	}
	input.Email = email

	if input.CountryID != nil || input.StateID != nil || input.CityID != nil {
		valid, err := s.geoRepo.ValidateLocation(input.CountryID, input.StateID, input.CityID)
		if err != nil {
			return err
		}
		if !valid {
			return ErrInvalidInput
		}
	}

	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailExists
	}
	return nil
}

func (s *AuthService) RegisterUser(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := s.validateBase(&input); err != nil {
		return nil, err
	}
	user, err := s.newUser(input, model.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, user)
}

func (s *AuthService) RegisterLawyer(ctx context.Context, input RegisterLawyerInput) (*AuthResult, error) {
	if err := s.validateBase(&input.RegisterInput); err != nil {
		return nil, err
	}
	card := strings.ToUpper(strings.TrimSpace(input.ProfessionalCardNumber))
	if card == "" || strings.TrimSpace(input.Specialty) == "" || input.YearsExperience < 0 || input.YearsExperience > 80 {
		return nil, ErrInvalidInput
	}
	exists, err := s.userRepo.ExistsByProfessionalCard(card)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCardExists
	}

	user, err := s.newUser(input.RegisterInput, model.RoleLawyer)
	if err != nil {
		return nil, err
	}
	user.ProfessionalCardNumber = &card
	user.BarAssociation = strings.TrimSpace(input.BarAssociation)
	user.Specialty = strings.TrimSpace(input.Specialty)
	user.YearsExperience = input.YearsExperience
	return s.create(ctx, user)
}

func (s *AuthService) newUser(input RegisterInput, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	return &model.User{
		Email:        input.Email,
		PasswordHash: string(hash),
		Name:         input.Name,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         role,
		CountryID:    input.CountryID,
		StateID:      input.StateID,
		CityID:       input.CityID,
	}, nil
}

func (s *AuthService) create(ctx context.Context, user *model.User) (*AuthResult, error) {
	if err := s.userRepo.Create(user); err != nil {
		if repository.IsDuplicateKey(err) {
			// lost a race with a concurrent registration
			if user.ProfessionalCardNumber != nil {
				if taken, _ := s.userRepo.ExistsByProfessionalCard(*user.ProfessionalCardNumber); taken {
					return nil, ErrCardExists
				}
			}
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Email, user.Name, user.IsLawyer()); err != nil {
			s.log.Warn("send welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.issue(user, "")
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email, ok := normalizeEmail(input.Email)
	if !ok || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredential
	}

	plan, err := s.CurrentPlan(user.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(user, plan)
}

// CurrentPlan returns the plan of the user's active subscription, or "".
func (s *AuthService) CurrentPlan(userID string) (model.PlanType, error) {
	now := s.now()
	sub, err := s.subRepo.GetCurrentByUserID(userID, now)
	if err != nil {
		return "", err
	}
	if sub == nil || !sub.Active(now) {
		return "", nil
	}
	return sub.PlanType, nil
}

func (s *AuthService) issue(user *model.User, plan model.PlanType) (*AuthResult, error) {
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, jwtutil.Subject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		Plan:   string(plan),
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: s.now().Add(s.jwtExpiration),
		User:      user,
		Plan:      plan,
	}, nil
}

func (s *AuthService) Me(userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	plan, err := s.CurrentPlan(user.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Plan: plan}, nil
}

// VerifyLawyer marks a lawyer's professional credentials as checked.
func (s *AuthService) VerifyLawyer(actor Actor, lawyerID string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if lawyerID == "" {
		return ErrInvalidInput
	}
	if err := s.userRepo.MarkCredentialsVerified(lawyerID, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.log.Info("lawyer credentials verified", zap.String("lawyer_id", lawyerID), zap.String("admin_id", actor.UserID))
	return nil
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"peakmind/internal/model"
	"peakmind/internal/pkg/jwtutil"
	"peakmind/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrOAuthDisabled     = errors.New("google sign-in is not configured")
	ErrOAuthState        = errors.New("invalid or expired oauth state")
	ErrOAuthExchange     = errors.New("oauth exchange failed")
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthStateStore keeps single-use state nonces for the OAuth round trip.
type OAuthStateStore interface {
	Save(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) (bool, error)
}

type AuthService struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	oauthCfg      *oauth2.Config
	states        OAuthStateStore
	userinfoURL   string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(
	userRepo *repository.UserRepository,
	jwtSecret string,
	jwtExpiration time.Duration,
	oauthCfg *oauth2.Config,
	states OAuthStateStore,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		oauthCfg:      oauthCfg,
		states:        states,
		userinfoURL:   googleUserinfoURL,
	}
}

func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)

	if username == "" || email == "" || password == "" || len(password) < 8 {
		return nil, ErrInvalidInput
	}

	existingByName, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return s.issueToken(user)
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	return s.issueToken(user)
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(id)
}

// GoogleAuthURL issues a consent URL with a fresh single-use state nonce.
func (s *AuthService) GoogleAuthURL(ctx context.Context) (string, error) {
	if s.oauthCfg == nil || s.oauthCfg.ClientID == "" {
		return "", ErrOAuthDisabled
	}

	state := uuid.NewString()
	if err := s.states.Save(ctx, state); err != nil {
		return "", err
	}
	return s.oauthCfg.AuthCodeURL(state), nil
}

// GoogleCallback validates the state nonce, exchanges the code, resolves the
// Google profile, and upserts a local account keyed by email.
func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (*AuthResult, error) {
	if s.oauthCfg == nil || s.oauthCfg.ClientID == "" {
		return nil, ErrOAuthDisabled
	}
	if state == "" || code == "" {
		return nil, ErrOAuthState
	}

	valid, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrOAuthState
	}

	token, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	profile, err := s.fetchGoogleProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: profile has no email", ErrOAuthExchange)
	}

	user, err := s.upsertGoogleUser(profile)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

type googleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *AuthService) fetchGoogleProfile(ctx context.Context, token *oauth2.Token) (*googleProfile, error) {
	resp, err := s.oauthCfg.Client(ctx, token).Get(s.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch userinfo: %v", ErrOAuthExchange, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read userinfo: %v", ErrOAuthExchange, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrOAuthExchange, resp.StatusCode)
	}

	var profile googleProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("%w: parse userinfo: %v", ErrOAuthExchange, err)
	}
	return &profile, nil
}

func (s *AuthService) upsertGoogleUser(profile *googleProfile) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		if user.GoogleSub == "" {
			user.GoogleSub = profile.ID
			if err := s.userRepo.Update(user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	username := strings.SplitN(email, "@", 2)[0]
	existing, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		username = fmt.Sprintf("%s-%s", username, uuid.NewString()[:8])
	}

	user = &model.User{
		Username:  username,
		Email:     email,
		GoogleSub: profile.ID,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueToken(user *model.User) (*AuthResult, error) {
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

package auth

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// User is a locally-mocked account. There is no registration and no user
// table; the fixed roster below stands in for a real identity provider.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`

	passwordHash []byte
}

// Service verifies mock credentials and issues real JWTs, so the rest of the
// request path is exercised exactly as it would be against a live provider.
type Service struct {
	secret []byte
	ttl    time.Duration
	users  map[string]User
}

func NewService(secret string, ttl time.Duration) *Service {
	s := &Service{
		secret: []byte(secret),
		ttl:    ttl,
		users:  make(map[string]User),
	}

	s.seed("demo", "demo123", "Demo User")
	s.seed("alex", "alex123", "Alex Rivera")
	return s
}

func (s *Service) seed(username, password, displayName string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	s.users[username] = User{
		ID:           uuid.NewV5(uuid.NamespaceOID, "taskie:"+username).String(),
		Username:     username,
		DisplayName:  displayName,
		passwordHash: hash,
	}
}

// Login checks the roster and returns a signed access token.
func (s *Service) Login(username, password string) (string, User, error) {
	user, ok := s.users[username]
	if !ok {
		return "", User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)) != nil {
		return "", User{}, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", User{}, err
	}

	return signed, user, nil
}

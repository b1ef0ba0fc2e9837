package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
)

// 令牌类别，每个类别有独立的密钥和过期时长
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindAction  Kind = "action"
)

var (
	ErrTokenExpired = errors.New("令牌已过期")
	ErrTokenInvalid = errors.New("无效的令牌")
	ErrUnknownKind  = errors.New("未知的令牌类别")
)

type strategy struct {
	secret     []byte
	expiration time.Duration
}

// Manager 按类别签发和校验 HS256 令牌，
// 调用方只需要给出类别，不需要知道对应的密钥和过期时长
type Manager struct {
	strategies map[Kind]strategy
}

type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		strategies: map[Kind]strategy{
			KindAccess: {
				secret:     []byte(cfg.JWT.AccessSecret),
				expiration: time.Duration(cfg.JWT.AccessExpiration) * time.Second,
			},
			KindRefresh: {
				secret:     []byte(cfg.JWT.RefreshSecret),
				expiration: time.Duration(cfg.JWT.RefreshExpiration) * time.Second,
			},
			KindAction: {
				secret:     []byte(cfg.JWT.ActionSecret),
				expiration: time.Duration(cfg.JWT.ActionExpiration) * time.Second,
			},
		},
	}
}

func (m *Manager) Expiration(kind Kind) time.Duration {
	return m.strategies[kind].expiration
}

// Generate 为 subject（通常是用户 ID 或邮箱）签发一个指定类别的令牌
func (m *Manager) Generate(kind Kind, subject string) (string, error) {
	s, ok := m.strategies[kind]
	if !ok {
		return "", ErrUnknownKind
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	})

	return t.SignedString(s.secret)
}

// Validate 校验签名和有效期并返回 subject。
// 过期返回 ErrTokenExpired，其余一切问题（畸形、签名不对、类别不匹配）都返回 ErrTokenInvalid，
// 以免向调用方泄露能区分伪造方式的信息
func (m *Manager) Validate(kind Kind, tokenString string) (string, error) {
	s, ok := m.strategies[kind]
	if !ok {
		return "", ErrUnknownKind
	}

	c := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		default:
			return "", ErrTokenInvalid
		}
	}

	// 防止拿着 refresh 令牌冒充 access 令牌这类跨类别使用
	if c.Kind != string(kind) {
		return "", ErrTokenInvalid
	}

	return c.Subject, nil
}

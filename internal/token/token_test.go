package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "access-secret-for-test"
	cfg.JWT.AccessExpiration = 900
	cfg.JWT.RefreshSecret = "refresh-secret-for-test"
	cfg.JWT.RefreshExpiration = 1209600
	cfg.JWT.ActionSecret = "action-secret-for-test"
	cfg.JWT.ActionExpiration = 1800
	return cfg
}

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager(newTestConfig())

	for _, kind := range []Kind{KindAccess, KindRefresh, KindAction} {
		tok, err := m.Generate(kind, "42")
		require.NoError(t, err)

		subject, err := m.Validate(kind, tok)
		require.NoError(t, err)
		assert.Equal(t, "42", subject)
	}
}

func TestValidate_KindMismatch(t *testing.T) {
	m := NewManager(newTestConfig())

	// refresh 令牌不能被当成 access 令牌使用
	tok, err := m.Generate(KindRefresh, "42")
	require.NoError(t, err)

	_, err = m.Validate(KindAccess, tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidate_SameKindDifferentSecret(t *testing.T) {
	m := NewManager(newTestConfig())

	other := newTestConfig()
	other.JWT.ActionSecret = "another-action-secret"

	tok, err := NewManager(other).Generate(KindAction, "someone@example.com")
	require.NoError(t, err)

	_, err = m.Validate(KindAction, tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidate_Expired(t *testing.T) {
	cfg := newTestConfig()
	cfg.JWT.ActionExpiration = -60 // 签出来就已经过期
	m := NewManager(cfg)

	tok, err := m.Generate(KindAction, "someone@example.com")
	require.NoError(t, err)

	_, err = m.Validate(KindAction, tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidate_Malformed(t *testing.T) {
	m := NewManager(newTestConfig())

	tok, err := m.Generate(KindAccess, "42")
	require.NoError(t, err)

	for _, bad := range []string{"", "not-a-jwt", tok + "x"} {
		_, err := m.Validate(KindAccess, bad)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestUnknownKind(t *testing.T) {
	m := NewManager(newTestConfig())

	_, err := m.Generate(Kind("session"), "42")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = m.Validate(Kind("session"), "whatever")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

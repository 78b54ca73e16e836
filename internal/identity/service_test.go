package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
	"github.com/victornm/scholarway/internal/identity"
	"github.com/victornm/scholarway/internal/storage"
)

func TestService_Login(t *testing.T) {
	tests := map[string]struct {
		email    string
		wantRole domain.Role
		wantCode errors.Code
	}{
		"student":          {email: "student@example.com", wantRole: domain.RoleStudent},
		"case insensitive": {email: " SuperAdmin@Example.com ", wantRole: domain.RoleSuperadmin},
		"unknown email":    {email: "nobody@example.com", wantCode: errors.CodeUnauthenticated},
		"empty email":      {email: "", wantCode: errors.CodeUnauthenticated},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := identity.NewService(identity.Config{Store: storage.NewMemory()})
			ctx := context.Background()

			sess, err := s.Login(ctx, tt.email)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantCode), err.Error())
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, sess.Token)
			assert.Equal(t, tt.wantRole, sess.User.Role)

			u, err := s.Current(ctx, sess.Token)
			require.NoError(t, err)
			assert.Equal(t, sess.User, *u)
		})
	}
}

func TestService_Register(t *testing.T) {
	s := identity.NewService(identity.Config{Store: storage.NewMemory()})
	ctx := context.Background()

	sess, err := s.Register(ctx, identity.RegisterRequest{
		Email: "carol@example.com",
		Name:  "Carol Student",
		Role:  domain.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "7", sess.User.ID)
	assert.Equal(t, domain.ScholarLevelJunior, sess.User.ScholarLevel)

	_, err = s.Register(ctx, identity.RegisterRequest{
		Email: "Carol@example.com",
		Name:  "Carol Again",
		Role:  domain.RoleTeacher,
	})
	assert.True(t, errors.Is(err, errors.CodeAlreadyExists))

	again, err := s.Login(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, sess.User, again.User)
}

func TestService_Register_Rejects(t *testing.T) {
	tests := map[string]identity.RegisterRequest{
		"bad email":  {Email: "carol", Name: "Carol", Role: domain.RoleStudent},
		"no name":    {Email: "carol@example.com", Role: domain.RoleStudent},
		"superadmin": {Email: "carol@example.com", Name: "Carol", Role: domain.RoleSuperadmin},
		"no role":    {Email: "carol@example.com", Name: "Carol"},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			s := identity.NewService(identity.Config{Store: storage.NewMemory()})

			_, err := s.Register(context.Background(), req)
			assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
		})
	}
}

func TestService_Logout(t *testing.T) {
	s := identity.NewService(identity.Config{Store: storage.NewMemory()})
	ctx := context.Background()

	sess, err := s.Login(ctx, "teacher@example.com")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, sess.Token))
	require.NoError(t, s.Logout(ctx, sess.Token), "logout should be idempotent")

	_, err = s.Current(ctx, sess.Token)
	assert.True(t, errors.Is(err, errors.CodeUnauthenticated))

	_, err = s.Current(ctx, "")
	assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
}

package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGetDelete(t *testing.T) {
	s := NewStoreWithKeyring(keyring.NewArrayKeyring(nil))

	require.NoError(t, s.Set(Key("work"), "hunter2"))
	got, err := s.Get(Key("work"))
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)

	require.NoError(t, s.Delete(Key("work")))
	_, err = s.Get(Key("work"))
	require.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestPasswordPrefersEnvironment(t *testing.T) {
	s := NewStoreWithKeyring(keyring.NewArrayKeyring([]keyring.Item{
		{Key: Key("work"), Data: []byte("from-keyring")},
	}))
	acc := config.AccountConfig{ID: "work", PasswordEnv: "MAILNOTIFY_TEST_PASSWORD"}

	got, err := s.Password(acc)
	require.NoError(t, err)
	require.Equal(t, "from-keyring", got)

	t.Setenv("MAILNOTIFY_TEST_PASSWORD", "from-env")
	got, err = s.Password(acc)
	require.NoError(t, err)
	require.Equal(t, "from-env", got)
}

func TestPasswordMissing(t *testing.T) {
	s := NewStoreWithKeyring(keyring.NewArrayKeyring(nil))
	_, err := s.Password(config.AccountConfig{ID: "nobody"})
	require.ErrorIs(t, err, ErrNoPassword)
}

func TestDisabledBackend(t *testing.T) {
	s := NewStore(BackendNone, t.TempDir())
	_, err := s.Get(Key("work"))
	require.Error(t, err)
}

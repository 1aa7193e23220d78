package identity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStorageIdentity_KnownVectors(t *testing.T) {
	cases := map[string]string{
		"abc":                              "90015098-3cd2-4fb0-8696-3f7d28e17f72",
		"user_2NNEqL2nrIRdJ194ndJqAHwEfxC": "8acb882c-17b4-46c2-8521-ad390aa0a9b7",
	}
	for in, want := range cases {
		require.Equal(t, want, DeriveStorageIdentity(in).String(), "input %q", in)
	}
}

func TestDeriveStorageIdentity_Deterministic(t *testing.T) {
	a := DeriveStorageIdentity("user_abc")
	b := DeriveStorageIdentity("user_abc")
	require.Equal(t, a, b)
	require.NotEqual(t, a, DeriveStorageIdentity("user_abd"))
}

func TestDeriveStorageIdentity_Shape(t *testing.T) {
	for i := 0; i < 500; i++ {
		id := DeriveStorageIdentity(fmt.Sprintf("user_%d", i)).String()
		require.True(t, IsStorageIdentity(id), id)
		require.Len(t, id, 36)
		require.Equal(t, byte('4'), id[14])
		require.Equal(t, byte('8'), id[19])
	}
}

func TestParseStorageIdentity(t *testing.T) {
	id := DeriveStorageIdentity("abc")
	got, err := ParseStorageIdentity(id.String())
	require.NoError(t, err)
	require.Equal(t, id, got)

	// variant nibble 'a' is a valid RFC 4122 UUID but never derived
	_, err = ParseStorageIdentity("90015098-3cd2-4fb0-a696-3f7d28e17f72")
	require.ErrorIs(t, err, ErrInvalidStorageIdentity)

	_, err = ParseStorageIdentity("90015098-3CD2-4FB0-8696-3F7D28E17F72")
	require.ErrorIs(t, err, ErrInvalidStorageIdentity)
}

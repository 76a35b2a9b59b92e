package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewHasher(Fast)

	phc, err := h.Hash("Str0ng!pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.True(t, h.Verify("Str0ng!pw", phc))
	assert.False(t, h.Verify("str0ng!pw", phc))
}

func TestHashIsSalted(t *testing.T) {
	h := NewHasher(Fast)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyUsesEmbeddedParams(t *testing.T) {
	phc, err := NewHasher(Fast).Hash("secret")
	require.NoError(t, err)

	other := NewHasher(Params{Memory: 2048, Time: 2, Parallelism: 1})
	assert.True(t, other.Verify("secret", phc))
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := NewHasher(Fast).Hash("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestVerifyMalformed(t *testing.T) {
	for _, phc := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$***$a2V5",
	} {
		ok, err := verify("secret", phc)
		assert.False(t, ok, phc)
		assert.ErrorIs(t, err, ErrMalformed, phc)
	}
}

func TestPolicyStrong(t *testing.T) {
	ok, reasons := Strong.Validate("Str0ng!pw")
	assert.True(t, ok)
	assert.Empty(t, reasons)

	cases := map[string]string{
		"S0!a":      "too_short",
		"str0ng!pw": "missing_upper",
		"STR0NG!PW": "missing_lower",
		"Strong!pw": "missing_digit",
		"Str0ngpw1": "missing_symbol",
	}
	for pwd, want := range cases {
		ok, reasons := Strong.Validate(pwd)
		assert.False(t, ok, pwd)
		assert.Contains(t, reasons, want, pwd)
	}
}

func TestPolicyBlacklist(t *testing.T) {
	bl, err := ReadBlacklist(strings.NewReader("# comunes\nP@ssw0rd!\n\nQwerty1!\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, bl.Len())

	p := Strong
	p.Blacklist = bl
	ok, reasons := p.Validate("p@ssw0rd!")
	assert.False(t, ok)
	assert.Contains(t, reasons, "blacklisted")

	var nilList *Blacklist
	assert.False(t, nilList.Contains("anything"))
}

func TestPolicyDescribe(t *testing.T) {
	assert.Equal(t,
		"La contraseña debe tener mínimo 8 caracteres, mayúscula, minúscula, número y caracter especial",
		Strong.Describe())
	assert.Equal(t, "La contraseña debe tener mínimo 10 caracteres", Policy{MinLength: 10}.Describe())
}

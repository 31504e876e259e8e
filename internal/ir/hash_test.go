package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionDigestDeterminism(t *testing.T) {
	d1, err := ActionDigest(AddToA{Amount: 2})
	require.NoError(t, err)
	d2, err := ActionDigest(AddToA{Amount: 2})
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestActionDigestChangesWithInput(t *testing.T) {
	base := MustActionDigest(AddToA{Amount: 2})

	assert.NotEqual(t, base, MustActionDigest(AddToA{Amount: 3}))
	assert.NotEqual(t, base, MustActionDigest(AsReplay(AddToA{Amount: 2})), "replay flag is part of identity")
	assert.NotEqual(t, base, MustActionDigest(SetA{A: 2}))
}

func TestActionDigestEffectKey(t *testing.T) {
	// Identity of an effect is its key, so differently keyed loads differ.
	assert.NotEqual(t,
		MustActionDigest(LoadStuff{Key: "a"}),
		MustActionDigest(LoadStuff{Key: "b"}))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"kind":"incA"}`)
	assert.NotEqual(t, hashWithDomain(DomainAction, data), hashWithDomain(DomainState, data))
	assert.Equal(t, hashWithDomain(DomainState, data), StateDigest(data))
}

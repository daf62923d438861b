package slug

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Cadeira Estofada Azul":  "cadeira-estofada-azul",
		"  Mesa de Jantar (6) ":  "mesa-de-jantar-6",
		"Sofá Três Lugares":      "sofa-tres-lugares",
		"Cômoda -- Ébano!!":      "comoda-ebano",
		"***":                    "item",
		"Armário_Cozinha/Branco": "armario-cozinha-branco",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestUnique(t *testing.T) {
	existing := map[string]bool{"sofa": true, "sofa-2": true}
	taken := func(_ context.Context, s string) (bool, error) { return existing[s], nil }

	got, err := Unique(context.Background(), "Sofá", taken)
	require.NoError(t, err)
	assert.Equal(t, "sofa-3", got)

	got, err = Unique(context.Background(), "Mesa", taken)
	require.NoError(t, err)
	assert.Equal(t, "mesa", got)
}

func TestUniquePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Unique(context.Background(), "x", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

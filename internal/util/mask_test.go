package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"ana.perez@gmail.com": "a…@g….com",
		" Ana@Pisci.App ":     "a…@p….app",
		"x@mail.example.org":  "x@m….e….org",
		"ana@localhost":       "a…@l…",
		"nocorreo":            "n…o",
		"abc":                 "***",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskEmail(in), in)
	}
}

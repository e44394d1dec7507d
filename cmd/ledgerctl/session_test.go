package main

import (
	"flag"
	"strings"
	"testing"

	"ledger/internal/client"
	"ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Sí\n", true},
		{"yes", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), "?"))
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseID(bad)
		assert.ErrorIs(t, err, core.ErrValidation, bad)
	}
}

func TestFormFlagsOverlay(t *testing.T) {
	var p formFlags
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	p.SetFlags(fs)
	require.NoError(t, fs.Parse([]string{"-amount", "1200", "-category", "", "7"}))

	base := client.Form{
		Type: "Ingreso", Date: "2024-01-05", Description: "Salary",
		Amount: "1000.00", Category: "Work", Account: "Checking",
	}
	got := p.overlay(fs, base)

	assert.Equal(t, "1200", got.Amount)
	assert.Equal(t, "", got.Category, "an explicit empty flag clears the field")
	assert.Equal(t, "Salary", got.Description)
	assert.Equal(t, "7", fs.Arg(0))
}

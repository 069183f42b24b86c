package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoles(t *testing.T) {
	tests := []struct {
		in      string
		want    Roles
		wantErr bool
	}{
		{in: "master", want: Roles{Master: true}},
		{in: "Pinger, ponger", want: Roles{Pinger: true, Ponger: true}},
		{in: "master,pinger,ponger,", want: Roles{Master: true, Pinger: true, Ponger: true}},
		{in: "", want: Roles{}},
		{in: "master,observer", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRoles(tt.in)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRolesHelpers(t *testing.T) {
	r := Roles{Master: true, Ponger: true}

	assert.True(t, r.Has(RoleMaster))
	assert.False(t, r.Has(RolePinger))
	assert.False(t, r.Has(Role("observer")))
	assert.True(t, r.Any())
	assert.False(t, Roles{}.Any())
	assert.Equal(t, "master,ponger", r.String())
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacklogValidate(t *testing.T) {
	tests := []struct {
		name    string
		backlog Backlog
		wantErr error
	}{
		{"valid", Backlog{Task: "Login", Theme: "Auth", Estimation: Int64(3)}, nil},
		{"missing estimation is allowed", Backlog{Task: "Login", Theme: "Auth"}, nil},
		{"blank task", Backlog{Task: "  ", Theme: "Auth"}, ErrInvalidTask},
		{"blank theme", Backlog{Task: "Login"}, ErrInvalidTheme},
		{"negative estimation", Backlog{Task: "Login", Theme: "Auth", Estimation: Int64(-1)}, ErrInvalidEstimation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.backlog.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBacklogNormalize(t *testing.T) {
	b := Backlog{Task: " Login ", Theme: "Auth\t", Team: " Team 1", Sprint: "Sprint 2 "}
	b.Normalize()
	assert.Equal(t, "Login", b.Task)
	assert.Equal(t, "Auth", b.Theme)
	assert.Equal(t, "Team 1", b.Team)
	assert.Equal(t, "Sprint 2", b.Sprint)
}

func TestParseEstimation(t *testing.T) {
	tests := []struct {
		in      string
		want    *int64
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "   ", want: nil},
		{in: "5", want: Int64(5)},
		{in: " 8 ", want: Int64(8)},
		{in: "5.0", want: Int64(5)},
		{in: "1,200", want: Int64(1200)},
		{in: "0", want: Int64(0)},
		{in: "2.5", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "1e1", want: Int64(10)},
		{in: "8.", want: Int64(8)},
		{in: "0x1p4", wantErr: true},
		{in: "0x10", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "1e400", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEstimation(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEstimation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

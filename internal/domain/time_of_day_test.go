package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welfare-transport/backend/internal/domain"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"08:30", "08:30"},
		{"23:59:59", "23:59:59"},
		{"00:00", "00:00"},
		{"07:05:00", "07:05"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := domain.ParseTimeOfDay(tc.in)

			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "24:00", "8h30", "12:60", "noon"} {
		_, err := domain.ParseTimeOfDay(in)
		assert.ErrorIs(t, err, domain.ErrValidation, in)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	type body struct {
		At  domain.TimeOfDay  `json:"at"`
		Opt *domain.TimeOfDay `json:"opt,omitempty"`
	}

	b, err := json.Marshal(body{At: domain.NewTimeOfDay(14, 5, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"14:05"}`, string(b))

	var got body
	require.NoError(t, json.Unmarshal([]byte(`{"at":"09:15:30","opt":"10:00"}`), &got))
	assert.Equal(t, domain.NewTimeOfDay(9, 15, 30), got.At)
	require.NotNil(t, got.Opt)
	assert.Equal(t, "10:00", got.Opt.String())

	err = json.Unmarshal([]byte(`{"at":"late"}`), &got)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

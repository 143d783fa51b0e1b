package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepositoryRef(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "plain", raw: "https://github.com/zapstore/zapstore", want: "https://github.com/zapstore/zapstore"},
		{name: "www and .git", raw: "https://www.github.com/owner/app.git", want: "https://github.com/owner/app"},
		{name: "extra path", raw: "https://github.com/owner/app/releases", want: "https://github.com/owner/app"},
		{name: "unsupported host", raw: "https://gitlab.com/owner/app", wantErr: ErrUnsupportedHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseRepositoryRef(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.URL())
		})
	}

	t.Run("missing name", func(t *testing.T) {
		_, err := ParseRepositoryRef("https://github.com/owner")
		require.Error(t, err)
		assert.True(t, IsInputError(err))
	})
}

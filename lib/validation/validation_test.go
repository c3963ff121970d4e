package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "1", want: 1},
		{raw: "42", want: 42},
		{raw: "0", wantErr: true},
		{raw: "-7", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "1.5", wantErr: true},
	}

	for _, tc := range tests {
		id, err := ParseID(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, id, tc.raw)
	}
}

func TestKeyword(t *testing.T) {
	keyword, err := Keyword("  breaking bad  ")
	require.NoError(t, err)
	assert.Equal(t, "breaking bad", keyword)

	_, err = Keyword("   ")
	assert.Error(t, err)

	_, err = Keyword("")
	assert.Error(t, err)
}

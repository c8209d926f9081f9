package dataset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdex-tools/datahelp-router/internal/dataset"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		fields map[string]string
		want   dataset.ID
		wantOK bool
	}{
		{
			name:   "PrimaryInNoise",
			fields: map[string]string{"description": "...see dataset d123456 for details..."},
			want:   "d123456",
			wantOK: true,
		},
		{
			name:   "PrimaryUpperCase",
			fields: map[string]string{"summary": "Download broken for D609000"},
			want:   "d609000",
			wantOK: true,
		},
		{
			name:   "PrimaryInMarkup",
			fields: map[string]string{"description": "*Dataset:* [d084001|https://example.org/d084001]"},
			want:   "d084001",
			wantOK: true,
		},
		{
			name:   "LegacyOnly",
			fields: map[string]string{"description": "issue with ds123.4"},
			want:   "d123004",
			wantOK: true,
		},
		{
			name:   "LegacyUpperCase",
			fields: map[string]string{"summary": "DS627.0 files missing"},
			want:   "d627000",
			wantOK: true,
		},
		{
			name: "PrimaryBeatsEarlierLegacy",
			fields: map[string]string{
				"description": "formerly ds083.2, now d083002",
			},
			want:   "d083002",
			wantOK: true,
		},
		{
			name: "PrimaryInOtherFieldBeatsLegacy",
			fields: map[string]string{
				"description": "see ds999.9",
				"summary":     "question about d100200",
			},
			want:   "d100200",
			wantOK: true,
		},
		{
			name:   "SevenDigitsIsNotAnID",
			fields: map[string]string{"description": "order d1234567 shipped"},
			wantOK: false,
		},
		{
			name:   "EmbeddedInWordIsNotAnID",
			fields: map[string]string{"description": "code xd123456 and ds123.45"},
			wantOK: false,
		},
		{
			name:   "NoIdentifier",
			fields: map[string]string{"summary": "Password reset", "description": "I cannot log in."},
			wantOK: false,
		},
		{
			name:   "EmptyFields",
			fields: map[string]string{},
			wantOK: false,
		},
		{
			name:   "NilFields",
			fields: nil,
			wantOK: false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, ok := dataset.Extract(testCase.fields)
			assert.Equal(t, testCase.wantOK, ok)
			assert.Equal(t, testCase.want, got)
			if ok {
				assert.True(t, got.Valid(), "extracted id %q is not canonical", got)
			}
		})
	}
}

func TestExtractFieldsDoNotFuse(t *testing.T) {
	t.Parallel()

	// "d12" at the end of one field and "3456" at the start of the next must
	// not be read as d123456.
	_, ok := dataset.Extract(map[string]string{"a": "d12", "b": "3456"})
	assert.False(t, ok)
}

func TestExtractIsDeterministic(t *testing.T) {
	t.Parallel()

	fields := map[string]string{
		"description": "d222222",
		"summary":     "d111111",
		"comment":     "d333333",
	}
	first, ok := dataset.Extract(fields)
	require.True(t, ok)
	for range 50 {
		got, _ := dataset.Extract(fields)
		require.Equal(t, first, got)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	id, err := dataset.Parse(" D123456 ")
	require.NoError(t, err)
	assert.Equal(t, dataset.ID("d123456"), id)

	for _, bad := range []string{"", "d12345", "ds123.4", "d1234567", "x123456"} {
		_, err := dataset.Parse(bad)
		require.ErrorIs(t, err, dataset.ErrInvalidID, "input %q", bad)
	}
}

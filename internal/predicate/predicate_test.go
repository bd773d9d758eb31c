package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "empty predicate",
			raw:  "",
			want: map[string]any{},
		},
		{
			name: "string equality",
			raw:  `status = 'active'`,
			want: map[string]any{"status": "active"},
		},
		{
			name: "boolean equality",
			raw:  `completed = false`,
			want: map[string]any{"completed": false},
		},
		{
			name: "boolean true",
			raw:  `archived = true`,
			want: map[string]any{"archived": true},
		},
		{
			name: "is null",
			raw:  `deleted_at IS NULL`,
			want: map[string]any{"deleted_at": nil},
		},
		{
			name: "is not null",
			raw:  `published_at IS NOT NULL`,
			want: map[string]any{"published_at_not_null": true},
		},
		{
			name: "multiple conditions combine",
			raw:  `completed = false AND deleted_at IS NULL`,
			want: map[string]any{"completed": false, "deleted_at": nil},
		},
		{
			name: "mixed string and not null",
			raw:  `kind = 'invoice' AND paid_at IS NOT NULL`,
			want: map[string]any{"kind": "invoice", "paid_at_not_null": true},
		},
		{
			name: "parenthesized postgres output",
			raw:  `(completed = false)`,
			want: map[string]any{"completed": false},
		},
		{
			name: "unsupported shape yields nothing",
			raw:  `amount > 100`,
			want: map[string]any{},
		},
		{
			name: "unsupported mixed with supported",
			raw:  `amount > 100 AND currency = 'EUR'`,
			want: map[string]any{"currency": "EUR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestParseNotNullDoesNotShadowNull(t *testing.T) {
	got := Parse(`a IS NOT NULL AND b IS NULL`)

	assert.Equal(t, true, got["a_not_null"])
	val, ok := got["b"]
	assert.True(t, ok)
	assert.Nil(t, val)
	_, aPresent := got["a"]
	assert.False(t, aPresent, "NOT NULL column must not also appear as IS NULL")
}

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{"Empty", nil, []string{}},
		{"Single", []string{"T1"}, []string{"T1"}},
		{"TrimsAndDropsEmpty", []string{" T1 , ,T2,", ""}, []string{"T1", "T2"}},
		{"MultipleValues", []string{"T2", "T1,T3", "T2"}, []string{"T1", "T2", "T3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSelection(tt.values...).Names())
		})
	}
}

func TestSelection_Selects(t *testing.T) {
	all := ParseSelection()
	assert.True(t, all.Selects("anything"))
	assert.Equal(t, "all", all.String())

	some := ParseSelection("T1,T3")
	assert.True(t, some.Selects("T1"))
	assert.False(t, some.Selects("T2"))
	assert.Equal(t, "T1,T3", some.String())
}

func TestValidTokenName(t *testing.T) {
	assert.True(t, ValidTokenName("ATLASDATADISK"))
	for _, bad := range []string{"", ".", "..", "a/b"} {
		assert.False(t, ValidTokenName(bad), bad)
	}
}

// ABOUTME: Tests for form list splitting and integer parsing
// ABOUTME: Malformed lists degrade to lists without empty members

package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{",", []string{}},
		{"a,", []string{"a"}},
		{" a , b ,c", []string{"a", "b", "c"}},
		{",,x,,", []string{"x"}},
		{"   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SplitList(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitGroups(t *testing.T) {
	assert.Equal(t, [][]string{{"e1", "e2"}, {"e3"}}, SplitGroups("e1,e2; e3"))
	assert.Equal(t, [][]string{{"e1"}}, SplitGroups("e1;;"))
	assert.Equal(t, [][]string{}, SplitGroups(""))
	assert.Equal(t, [][]string{}, SplitGroups(" ; , ;"))
}

func TestParseInt(t *testing.T) {
	n, err := ParseInt("quantity", " 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = ParseInt("quantity", "three")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")

	_, err = ParseInt("ghgEmissions", "")
	require.Error(t, err)
}

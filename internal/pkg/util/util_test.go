package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "General-Chat", Slugify("General Chat"))
	assert.Equal(t, "(Off)-Topic", Slugify("[Off] Topic"))
	assert.Equal(t, "a-b", Slugify("a  -- b"))
	assert.Equal(t, "Q&A", Slugify("Q&A"))
}

func TestResourceParam(t *testing.T) {
	assert.Equal(t, "7;General-Chat", ResourceParam(7, "General Chat", false))
	assert.Equal(t, "7", ResourceParam(7, "General Chat", true))
}

func TestParseParamID(t *testing.T) {
	id, err := ParseParamID("12;Some-Name")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	id, err = ParseParamID("12")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	_, err = ParseParamID("abc")
	assert.Error(t, err)
}

func TestSplitUsernames(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob", "carol"}, SplitUsernames(" alice , bob,carol ,alice"))
	assert.Nil(t, SplitUsernames("   "))
	assert.Equal(t, []string{"alice"}, SplitUsernames("alice,,"))
}

func TestPage(t *testing.T) {
	p := NewPage(0, 10, 25)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 0, p.Offset())

	p = NewPage(3, 10, 25)
	assert.Equal(t, 20, p.Offset())

	assert.Equal(t, 1, PageForIndex(0, 10))
	assert.Equal(t, 1, PageForIndex(9, 10))
	assert.Equal(t, 2, PageForIndex(10, 10))
	assert.Equal(t, 1, PageForIndex(5, 0))
}

func TestValidateDTO(t *testing.T) {
	type form struct {
		Title string `json:"title" validate:"required,max=5"`
		Body  string `json:"body" validate:"required"`
	}

	assert.Nil(t, ValidateDTO(&form{Title: "hi", Body: "x"}))

	fields := ValidateDTO(&form{Title: "too long title"})
	require.Len(t, fields, 2)
	assert.Equal(t, "title", fields[0].Field)
	assert.Equal(t, "max", fields[0].Rule)
	assert.Equal(t, "body", fields[1].Field)
	assert.Equal(t, "required", fields[1].Rule)
}

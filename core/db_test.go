package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanOrdering(t *testing.T) {
	ordering := []DBOrdering{{Field: "name", Ascending: true}, {Field: "password_hash"}, {Field: "id"}}
	assert.Equal(t,
		[]DBOrdering{{Field: "name", Ascending: true}, {Field: "id"}},
		CleanOrdering(ordering, "id", "name"),
	)
	assert.Nil(t, CleanOrdering(nil, "id"))
	assert.Equal(t, "name ASC", ordering[0].String())
	assert.Equal(t, "id DESC", ordering[2].String())
}

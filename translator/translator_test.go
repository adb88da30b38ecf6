package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameFallsBackToSource(t *testing.T) {
	s := &Shader{Mapped: map[string]string{
		"uTime":  "_uuTime",
		"uEmpty": "",
	}}
	assert.Equal(t, "_uuTime", s.Name("uTime"))
	assert.Equal(t, "uEmpty", s.Name("uEmpty"))
	assert.Equal(t, "uMissing", s.Name("uMissing"))
}

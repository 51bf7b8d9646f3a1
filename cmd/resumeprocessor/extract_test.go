package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "简历文本", clip("简历文本", 10))
	assert.Equal(t, "简历\n...(已截断)", clip("简历文本", 2))
	assert.Equal(t, "abc", clip("abc", -1))
}

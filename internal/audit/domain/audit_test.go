package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubscriberID(t *testing.T) {
	cases := map[string]string{
		"6":                    "6",
		"  6 ":                 "6",
		"{'$eq': '6'}":         "6",
		`{"$eq": "sub-42"}`:    "sub-42",
		"{'$eq': 17}":          "17",
		"{'$ne': '6'}":         "{'$ne': '6'}",
		"{'$eq': {'$gt': ''}}": "{'$eq': {'$gt': ''}}",
		"{}":                   "{}",
		"__import__('os')":     "__import__('os')",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSubscriberID(in), in)
	}
}

package manager

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateName_UsesPrefix(t *testing.T) {
	name := GenerateName("suite_")
	assert.True(t, len(name) > len("suite_"))
	assert.Regexp(t, regexp.MustCompile(`^suite_[a-z0-9_]+$`), name)
}

func TestGenerateName_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		name := GenerateName(DefaultPrefix)
		_, dup := seen[name]
		require.False(t, dup, "duplicate name %q", name)
		seen[name] = struct{}{}
	}
}

func TestGenerateName_ValidIdentifier(t *testing.T) {
	// PostgreSQL truncates identifiers at 63 bytes; generated names must
	// already fit so CREATE DATABASE and DROP DATABASE agree on the name.
	name := GenerateName("a_very_long_test_suite_prefix_that_keeps_going_and_going_")
	assert.LessOrEqual(t, len(name), 63)
	assert.Regexp(t, regexp.MustCompile(`^[a-z0-9_]+$`), name)
}

func TestGenerateName_LowercasesPrefix(t *testing.T) {
	name := GenerateName("MySuite-")
	assert.Regexp(t, regexp.MustCompile(`^mysuite_`), name)
}

func TestNew_EmptyPrefixSelectsDefault(t *testing.T) {
	m := New(nil, "", false, nil)
	assert.Equal(t, DefaultPrefix, m.prefix)

	m = New(nil, "custom_", true, nil)
	assert.Equal(t, "custom_", m.prefix)
	assert.True(t, m.keep)
}

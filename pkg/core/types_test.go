/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types_test.go
Description: Tests for base types, TypeInfo construction and numeric regexp generation.
*/

package core_test

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseTypeNames(t *testing.T) {
	for _, name := range []string{"BOOLEAN", "LONG", "DOUBLE", "STRING", "LOCALDATE", "ZONEDDATETIME"} {
		bt, err := core.ParseBaseType(name)
		require.NoError(t, err)
		assert.Equal(t, name, bt.String())
	}
	_, err := core.ParseBaseType("DECIMAL")
	assert.Error(t, err)

	assert.True(t, core.BaseLong.IsNumeric())
	assert.False(t, core.BaseString.IsNumeric())
	assert.True(t, core.BaseOffsetDateTime.IsDateType())
}

func TestTypeInfoJSON(t *testing.T) {
	ti := core.NewSemanticTypeInfo(core.BaseString, `\p{L}+`, "COLOR.TEXT_EN")
	data, err := json.Marshal(ti)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"baseType":"STRING"`)

	var back core.TypeInfo
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ti.Equal(&back))
	assert.Equal(t, "COLOR.TEXT_EN", back.SemanticName())
}

func TestTypeInfoPriorChain(t *testing.T) {
	first := core.NewTypeInfo(core.BaseString, core.PatternAlpha, core.FlagAlpha)
	second := core.NewTypeInfo(core.BaseString, core.PatternAlnum, core.FlagAlphanumeric).Supersedes(first)
	require.NotNil(t, second.Prior)
	assert.True(t, second.Prior.Equal(first))
	assert.True(t, first.IsAlphabetic())
	assert.True(t, second.IsAlphanumeric())
	assert.False(t, second.IsWildcard())
	assert.True(t, core.NewTypeInfo(core.BaseString, core.PatternAny, 0).IsWildcard())
}

func TestNumericRegexp(t *testing.T) {
	sym := core.Symbols{Grouping: ',', Decimal: '.', Minus: '-'}
	cases := []struct {
		base    core.BaseType
		flags   core.TypeFlags
		matches []string
		rejects []string
	}{
		{core.BaseLong, 0, []string{"0", "123"}, []string{"-1", "1.5"}},
		{core.BaseLong, core.FlagSigned, []string{"-12", "+4", "9"}, []string{"1-"}},
		{core.BaseLong, core.FlagGrouping, []string{"1,234", "12"}, []string{"1,23"}},
		{core.BaseLong, core.FlagSigned | core.FlagTrailingMinus, []string{"12-", "12"}, []string{"-12"}},
		{core.BaseDouble, 0, []string{"1.5", ".5", "3"}, []string{"1e5"}},
		{core.BaseDouble, core.FlagSigned | core.FlagExponent, []string{"-1.5e10", "2E-3"}, []string{"e5"}},
	}
	for _, c := range cases {
		re := regexp.MustCompile("^(?:" + core.NumericRegexp(c.base, c.flags, sym) + ")$")
		for _, m := range c.matches {
			assert.True(t, re.MatchString(m), "%s should match %s", re, m)
		}
		for _, r := range c.rejects {
			assert.False(t, re.MatchString(r), "%s should reject %s", re, r)
		}
	}
}

func TestLengthQualified(t *testing.T) {
	assert.Equal(t, `\d{5}`, core.LengthQualified(`\d`, 5, 5))
	assert.Equal(t, `\p{L}{2,7}`, core.LengthQualified(`\p{L}`, 2, 7))
}

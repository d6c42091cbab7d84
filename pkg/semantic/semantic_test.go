/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: semantic_test.go
Description: Tests for matcher kinds, definitions, the registry and the shared regex cache.
*/

package semantic

import (
	"strings"
	"sync"
	"testing"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFacts struct {
	min, max string
}

func (s stubFacts) MinValue() string      { return s.min }
func (s stubFacts) MaxValue() string      { return s.max }
func (s stubFacts) MinTrimmedLength() int { return len(s.min) }
func (s stubFacts) MaxTrimmedLength() int { return len(s.max) }
func (s stubFacts) SampleCount() int64    { return 0 }
func (s stubFacts) NullCount() int64      { return 0 }
func (s stubFacts) BlankCount() int64     { return 0 }

func matcherByName(t *testing.T, name string) Matcher {
	t.Helper()
	matchers, err := NewRegistry(nil).BuildAll()
	require.NoError(t, err)
	for _, m := range matchers {
		if m.Name() == name {
			return m
		}
	}
	t.Fatalf("matcher %s not found", name)
	return nil
}

func TestBuiltinsLoadInPriorityOrder(t *testing.T) {
	matchers, err := NewRegistry(nil).BuildAll()
	require.NoError(t, err)
	require.NotEmpty(t, matchers)
	for i := 1; i < len(matchers); i++ {
		assert.LessOrEqual(t, matchers[i-1].Priority(), matchers[i].Priority())
	}
	kinds := map[Kind]int{}
	for _, m := range matchers {
		kinds[m.Kind()]++
	}
	assert.Equal(t, 4, kinds[Infinite])
	assert.Equal(t, 1, kinds[RegexMatch])
	assert.Equal(t, 3, kinds[Finite])
}

func TestFiniteColor(t *testing.T) {
	m := matcherByName(t, "COLOR.TEXT_EN")
	cfg := core.DefaultAnalysisConfig()
	ctx := core.NewAnalysisContext("paint")

	assert.True(t, m.IsValid("red", false, 1))
	assert.True(t, m.IsValid(" Blue ", false, 1))
	assert.False(t, m.IsValid("banana", false, 1))

	card := map[string]int64{"red": 2, "blue": 1, "green": 1}
	a := m.AnalyzeSet(ctx, 4, 4, core.PatternAlpha, stubFacts{}, card, map[string]int64{}, nil, cfg)
	assert.True(t, a.Valid)

	card["banana"] = 1
	card["apple"] = 1
	outliers := map[string]int64{"banana": 1, "apple": 1}
	a = m.AnalyzeSet(ctx, 4, 6, core.PatternAlpha, stubFacts{}, card, outliers, nil, cfg)
	assert.False(t, a.Valid)
	assert.Equal(t, core.PatternAlpha, a.NewPattern)
}

func TestFiniteHeaderRelaxesBudget(t *testing.T) {
	m := matcherByName(t, "COLOR.TEXT_EN")
	cfg := core.DefaultAnalysisConfig()

	card := map[string]int64{"red": 60, "blue": 37, "mauve": 1, "puce": 1, "ecru": 1}
	outliers := map[string]int64{"mauve": 1, "puce": 1, "ecru": 1}

	plain := m.AnalyzeSet(core.NewAnalysisContext("c1"), 97, 100, core.PatternAlpha, stubFacts{}, card, outliers, nil, cfg)
	assert.False(t, plain.Valid)

	named := m.AnalyzeSet(core.NewAnalysisContext("Colour"), 97, 100, core.PatternAlpha, stubFacts{}, card, outliers, nil, cfg)
	assert.True(t, named.Valid)
	assert.Equal(t, 90, m.HeaderConfidence("Colour"))
}

func TestInfiniteValidators(t *testing.T) {
	sym := core.Symbols{Grouping: ',', Decimal: '.', Minus: '-'}
	cases := []struct {
		matcher string
		good    []string
		bad     []string
	}{
		{"EMAIL", []string{"a@b.com", "first.last+tag@example.co.uk"}, []string{"a@b", "Bob <a@b.com>", "@x.com"}},
		{"IPADDRESS.IPV4", []string{"10.0.0.1", "255.255.255.255"}, []string{"256.1.1.1", "1.2.3", "::1"}},
		{"GUID", []string{"123e4567-e89b-12d3-a456-426614174000"}, []string{"123e4567e89b12d3a456426614174000", "not-a-guid"}},
		{"URI.URL", []string{"https://example.com/x", "ftp://host/file"}, []string{"example.com", "mailto:a@b.com"}},
	}
	for _, c := range cases {
		m := matcherByName(t, c.matcher)
		for _, g := range c.good {
			shape := escalator.Scan(g, sym)
			assert.True(t, m.IsCandidate(g, &shape), "%s should accept %s", c.matcher, g)
		}
		for _, b := range c.bad {
			assert.False(t, m.IsValid(b, false, 1), "%s should reject %s", c.matcher, b)
		}
	}
}

func TestInfiniteAnalyzeSetBacksOutToWildcard(t *testing.T) {
	m := matcherByName(t, "EMAIL")
	cfg := core.DefaultAnalysisConfig()
	a := m.AnalyzeSet(core.NewAnalysisContext("contact"), 80, 100, ".+", nil, nil, nil, nil, cfg)
	assert.False(t, a.Valid)
	assert.Equal(t, core.PatternAny, a.NewPattern)

	a = m.AnalyzeSet(core.NewAnalysisContext("contact"), 99, 100, ".+", nil, nil, nil, nil, cfg)
	assert.True(t, a.Valid)
}

func TestRegexMinMax(t *testing.T) {
	m := matcherByName(t, "POSTAL_CODE.ZIP5_US")
	cfg := core.DefaultAnalysisConfig()
	ctx := core.NewAnalysisContext("zip")

	assert.True(t, m.IsValid("02139", false, 1))
	assert.False(t, m.IsValid("2139", false, 1))

	ok := m.AnalyzeSet(ctx, 100, 100, `\d{5}`, stubFacts{min: "1001", max: "98101"}, nil, nil, nil, cfg)
	assert.True(t, ok.Valid)

	low := m.AnalyzeSet(ctx, 100, 100, `\d{5}`, stubFacts{min: "100", max: "98101"}, nil, nil, nil, cfg)
	assert.False(t, low.Valid)

	negative := m.AnalyzeSet(core.NewAnalysisContext("amount"), 100, 100, `\d{5}`, stubFacts{min: "1001", max: "98101"}, nil, nil, nil, cfg)
	assert.False(t, negative.Valid)
}

func TestDefinitionsFromYAML(t *testing.T) {
	yamlDefs := `
- semanticType: PLANET.TEXT_EN
  kind: finite
  baseType: STRING
  priority: 5
  members: [MERCURY, VENUS, EARTH, MARS]
- semanticType: SKU
  kind: regex
  baseType: STRING
  priority: 6
  regexp: 'SKU-\d{6}'
`
	defs, err := ReadDefinitions(strings.NewReader(yamlDefs))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	r := NewRegistry(nil)
	require.NoError(t, r.AddDefinitions(defs))
	matchers, err := r.Build(defs)
	require.NoError(t, err)
	assert.Equal(t, "PLANET.TEXT_EN", matchers[0].Name())
	assert.Equal(t, `\p{L}{4,7}`, matchers[0].Regexp())
	assert.True(t, matchers[1].IsValid("SKU-123456", false, 1))

	_, err = ParseDefinitions([]byte("- semanticType: X\n  kind: finite\n  baseType: STRING\n"))
	assert.Error(t, err)

	_, err = r.Build([]Definition{{SemanticType: "PHONE", Kind: "infinite", BaseType: "STRING"}})
	assert.Error(t, err)
}

func TestRegexCacheComputesOnce(t *testing.T) {
	cache := NewRegexCache()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			re, err := cache.CompileAnchored(`\d{3}`)
			assert.NoError(t, err)
			assert.True(t, re.MatchString("123"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())

	pattern, re, err := cache.Enum([]string{"b", "a.c"})
	require.NoError(t, err)
	assert.Equal(t, `(?:a\.c|b)`, pattern)
	assert.True(t, re.MatchString("a.c"))
	assert.False(t, re.MatchString("abc"))

	_, err = cache.Compile("(")
	assert.Error(t, err)
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bounded_test.go
Description: Tests for the bounded frequency map.
*/

package freqmap

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeIfSpaceRefusesNewKeysWhenFull(t *testing.T) {
	m := New(2)
	assert.True(t, m.MergeIfSpace("a", 1))
	assert.True(t, m.MergeIfSpace("b", 2))
	assert.True(t, m.Full())

	assert.False(t, m.MergeIfSpace("c", 1))
	assert.True(t, m.MergeIfSpace("a", 4))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, int64(5), m.Get("a"))
	assert.Equal(t, int64(7), m.Total())
}

func TestSizeNeverExceedsCapacity(t *testing.T) {
	m := New(10)
	for i := 0; i < 1000; i++ {
		m.MergeIfSpace(strconv.Itoa(i%37), 1)
		require.LessOrEqual(t, m.Len(), m.Cap())
	}
}

func TestMergeOnlyUpdatesExisting(t *testing.T) {
	m := New(5)
	assert.False(t, m.Merge("x", 1))
	m.MergeIfSpace("x", 1)
	assert.True(t, m.Merge("x", 2))
	assert.Equal(t, int64(3), m.Get("x"))
}

func TestOrderedViews(t *testing.T) {
	m := New(10)
	m.MergeIfSpace("pear", 1)
	m.MergeIfSpace("apple", 3)
	m.MergeIfSpace("fig", 3)

	assert.Equal(t, []string{"apple", "fig", "pear"}, m.Keys())
	byCount := m.ByCount()
	assert.Equal(t, "apple", byCount[0].Key)
	assert.Equal(t, "fig", byCount[1].Key)
	assert.Equal(t, "pear", byCount[2].Key)
}

func TestMergeAllReportsOverflow(t *testing.T) {
	a := New(3)
	a.MergeIfSpace("1", 1)
	a.MergeIfSpace("2", 1)

	b := New(3)
	b.MergeIfSpace("2", 5)
	b.MergeIfSpace("3", 1)
	b.MergeIfSpace("4", 1)

	overflow := a.MergeAll(b)
	assert.Equal(t, []Entry{{Key: "4", Count: 1}}, overflow)
	assert.Equal(t, int64(6), a.Get("2"))
	assert.Equal(t, 3, a.Len())
}

func TestRemoveAndClone(t *testing.T) {
	m := New(4)
	m.MergeIfSpace("k", 3)
	c := m.Clone()
	assert.Equal(t, int64(3), m.Remove("k"))
	assert.Equal(t, int64(0), m.Total())
	assert.Equal(t, int64(3), c.Get("k"))
}

func TestJSONRoundTripKeepsCapacity(t *testing.T) {
	m := New(4)
	m.MergeIfSpace("b", 2)
	m.MergeIfSpace("a", 1)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back Bounded
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 4, back.Cap())
	assert.Equal(t, m.Entries(), back.Entries())

	assert.Error(t, json.Unmarshal([]byte(`{"capacity":1,"entries":[{"key":"a","count":1},{"key":"b","count":1}]}`), &back))
}

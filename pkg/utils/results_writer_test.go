/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: results_writer_test.go
Description: Tests for the results writer.
*/

package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "unnamed", SafeName(""))
	assert.Equal(t, "order_id", SafeName("order_id"))
	assert.Equal(t, "a_b_c.csv", SafeName("a/b c.csv"))
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteResult(dir, "profile", "1.0.0", map[string]int{"streams": 2})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "profile"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_profile_v1.0.0.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded["streams"])

	_, err = WriteResult(dir, "bad", "1", func() {})
	assert.Error(t, err)
}

func TestWriteState(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteState(dir, "price usd", []byte(`{"config":{}}`))
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "price_usd.state.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"config":{}}`, string(data))
}

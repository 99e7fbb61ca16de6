// SPDX-License-Identifier: Apache-2.0

package policy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRenderFiles(t *testing.T) {
	dir := t.TempDir()

	base := writeFile(t, dir, "base.yaml", `
operational:
  vlans:
    - vlan-id: 10
      name: mgmt
  mgmt_subnet: 172.30.0.0/24
`)
	ov1 := writeFile(t, dir, "ov1.yaml", `
operational:
  vlans:
    - vlan-id: 20
      name: service
`)
	ov2 := writeFile(t, dir, "ov2.json", `{"operational":{"mgmt_subnet":"192.168.0.0/24"}}`)

	got, err := policy.RenderFiles(base, ov1, ov2)
	require.NoError(t, err)

	oper := got["operational"].(map[string]interface{})
	assert.Equal(t, "192.168.0.0/24", oper["mgmt_subnet"])
	assert.Len(t, oper["vlans"].([]interface{}), 2)
}

func TestRenderFilesMissingOverlay(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "a: 1\n")

	_, err := policy.RenderFiles(base, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRenderIsPurePerCall(t *testing.T) {
	base := map[string]interface{}{"a": map[string]interface{}{"b": 1}}
	ov := map[string]interface{}{"a": map[string]interface{}{"b": 2}}

	first, err := policy.Render(base, ov)
	require.NoError(t, err)
	second, err := policy.Render(base, ov)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, base["a"].(map[string]interface{})["b"])
}

package configs

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/buscador/internal/config"
)

func TestProjectConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the embedded template decoded over an empty config
	var got config.Config
	require.NoError(t, yaml.Unmarshal([]byte(ProjectConfigTemplate), &got))

	// Then: every value matches the built-in defaults
	want := config.NewConfig()
	got.Index.Workers = want.Index.Workers
	assert.Equal(t, *want, got)
	assert.NoError(t, got.Validate())
}

func TestEnvTemplate_ListsOnlyCommentedAssignments(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader(EnvTemplate))
	var keys int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "#"), "line is not commented: %q", line)
		if strings.Contains(line, "=") {
			keys++
		}
	}
	assert.GreaterOrEqual(t, keys, 10)
}

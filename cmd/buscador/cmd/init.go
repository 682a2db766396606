package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/buscador/configs"
	"github.com/Aman-CERP/buscador/internal/output"
)

// ConfigFileName is the file written by init.
const ConfigFileName = "buscador.yaml"

// MCPServerConfig is one server entry in .mcp.json.
type MCPServerConfig struct {
	Type    string   `json:"type,omitempty"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
}

// MCPConfig is the root .mcp.json structure.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

func newInitCmd() *cobra.Command {
	var force bool
	var withMCP bool
	var withEnv bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default configuration file",
		Long: `Write a commented buscador.yaml with the default configuration to dir
(default: the working directory). With --env, also write .env.example listing
the environment overrides. With --mcp, also write a .mcp.json registering
'buscador mcp' for MCP clients.`,
		Example: `  buscador init
  buscador init --force
  buscador init --env --mcp`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, initOptions{force: force, env: withEnv, mcp: withMCP})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&withEnv, "env", false, "Also write .env.example")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Also write .mcp.json")

	return cmd
}

type initOptions struct {
	force bool
	env   bool
	mcp   bool
}

func runInit(cmd *cobra.Command, dir string, opts initOptions) error {
	out := output.New(cmd.OutOrStdout())

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", absDir, err)
	}

	write := func(name string, data []byte, perm os.FileMode) error {
		path := filepath.Join(absDir, name)
		if _, err := os.Stat(path); err == nil && !opts.force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.WriteFile(path, data, perm); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		out.Successf("Wrote %s", path)
		return nil
	}

	if err := write(ConfigFileName, []byte(configs.ProjectConfigTemplate), 0o600); err != nil {
		return err
	}

	if opts.env {
		if err := write(".env.example", []byte(configs.EnvTemplate), 0o644); err != nil {
			return err
		}
	}

	if opts.mcp {
		data, err := json.MarshalIndent(MCPConfig{
			MCPServers: map[string]MCPServerConfig{
				"buscador": {Type: "stdio", Command: "buscador", Args: []string{"mcp"}, Cwd: absDir},
			},
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal MCP config: %w", err)
		}
		if err := write(".mcp.json", append(data, '\n'), 0o644); err != nil {
			return err
		}
	}

	out.Status("", "Edit paths and database settings, then run 'buscador index'.")
	return nil
}

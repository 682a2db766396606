// Package configs provides embedded configuration templates for buscador.
//
// Templates are embedded at build time so that `buscador init` can write a
// commented configuration file from any distribution of the binary.
//
// Template files:
//   - buscador.example.yaml: written by `buscador init` as buscador.yaml
//   - env.example: written by `buscador init --env` as .env.example
//
// Every value in buscador.example.yaml matches config.NewConfig(). Edit the
// template and the defaults together.
package configs

import _ "embed"

// ProjectConfigTemplate is the commented buscador.yaml written by init.
//
//go:embed buscador.example.yaml
var ProjectConfigTemplate string

// EnvTemplate lists the environment overrides read by config.Load.
//
//go:embed env.example
var EnvTemplate string

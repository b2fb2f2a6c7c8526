package rotor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stage is a deployment environment. Every secret key is scoped to exactly
// one stage.
type Stage string

const (
	StageDev     Stage = "dev"
	StageQA      Stage = "qa"
	StageUAT     Stage = "uat"
	StagePreProd Stage = "preprod"
	StageProd    Stage = "prod"
)

// Stages lists all recognized deployment stages.
func Stages() []Stage {
	return []Stage{StageDev, StageQA, StageUAT, StagePreProd, StageProd}
}

// ParseStage validates a stage name, case-insensitively.
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Stages() {
		if stage == known {
			return stage, nil
		}
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown stage: %q", s)}
}

// EnvironmentResolver answers where the per-stage artifacts live: which
// logical key protects a stage and which variable file holds its values.
type EnvironmentResolver interface {
	CurrentStage() Stage
	SecretKeyName(stage Stage) string
	VariableFilePath(stage Stage) string
}

// Environment resolves stages from the process environment and a base
// directory of per-stage variable files.
type Environment struct {
	// BaseDir holds the per-stage variable files, one ".env.<stage>" each.
	BaseDir string

	// StageVar is the environment variable naming the active stage.
	// Defaults to "ROTOR_STAGE".
	StageVar string
}

// DefaultStageVar is the environment variable consulted for the active
// stage when none is configured.
const DefaultStageVar = "ROTOR_STAGE"

// CurrentStage reads the active stage from the environment, falling back to
// dev when unset or unrecognized.
func (e *Environment) CurrentStage() Stage {
	name := e.StageVar
	if name == "" {
		name = DefaultStageVar
	}
	stage, err := ParseStage(os.Getenv(name))
	if err != nil {
		return StageDev
	}
	return stage
}

// SecretKeyName returns the variable name under which a stage's secret key
// is stored.
func (e *Environment) SecretKeyName(stage Stage) string {
	return fmt.Sprintf("SECRET_KEY_%s", strings.ToUpper(string(stage)))
}

// VariableFilePath returns the variable file for a stage.
func (e *Environment) VariableFilePath(stage Stage) string {
	dir := e.BaseDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf(".env.%s", stage))
}

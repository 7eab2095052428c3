// Package medium defines nutrient environments for gap-filling: a closed set
// of named presets plus support for arbitrary compound lists. There is no
// process-wide registry; callers pass the Medium value they want down to the
// orchestrator.
package medium

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Medium is an ordered list of extracellular metabolite IDs available for
// uptake.
type Medium []string

// Named preset identifiers.
const (
	NameRich     = "rich"
	NameComplete = "complete"
	NameMinimal  = "minimal"
)

// Named resolves a preset medium by name.
func Named(name string) (Medium, error) {
	switch name {
	case NameRich:
		return Rich, nil
	case NameComplete:
		return Complete, nil
	case NameMinimal:
		return Minimal, nil
	default:
		return nil, fmt.Errorf("medium: %q is not a known medium", name)
	}
}

// file is the YAML shape accepted by LoadFile.
type file struct {
	Name      string   `yaml:"name"`
	Compounds []string `yaml:"compounds"`
}

// LoadFile reads a custom medium definition from a YAML file of the form:
//
//	name: my-medium
//	compounds:
//	  - cpd00027_e
//	  - cpd00001_e
func LoadFile(path string) (Medium, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("medium: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("medium: parse %s: %w", path, err)
	}
	if len(f.Compounds) == 0 {
		return nil, fmt.Errorf("medium: %s defines no compounds", path)
	}
	return Medium(f.Compounds), nil
}

// Rich is the default gap-filling environment: a broad mix of carbon,
// nitrogen, and trace compounds.
var Rich = Medium{
	"cpd00001_e", "cpd00035_e", "cpd00041_e", "cpd00023_e", "cpd00119_e",
	"cpd00107_e", "cpd00060_e", "cpd00161_e", "cpd00069_e", "cpd00084_e",
	"cpd00033_e", "cpd00322_e", "cpd00066_e", "cpd00054_e", "cpd00065_e",
	"cpd00156_e", "cpd00220_e", "cpd00644_e", "cpd00393_e", "cpd00133_e",
	"cpd00263_e", "cpd00104_e", "cpd00149_e", "cpd00971_e", "cpd00099_e",
	"cpd00205_e", "cpd00009_e", "cpd00063_e", "cpd00254_e", "cpd10515_e",
	"cpd00030_e", "cpd00242_e", "cpd00226_e", "cpd01242_e", "cpd00307_e",
	"cpd00092_e", "cpd00117_e", "cpd00067_e", "cpd00567_e", "cpd00132_e",
	"cpd00210_e", "cpd00320_e", "cpd03279_e", "cpd00246_e", "cpd00311_e",
	"cpd00367_e", "cpd00277_e", "cpd00182_e", "cpd00654_e", "cpd00412_e",
	"cpd00438_e", "cpd00274_e", "cpd00186_e", "cpd00637_e", "cpd00105_e",
	"cpd00305_e", "cpd00309_e", "cpd00098_e", "cpd00207_e", "cpd00082_e",
	"cpd00129_e",
}

// Complete lists the compounds forced open before the second, medium-driven
// gap-filling pass (amino acids, glucose, and inorganic ions).
var Complete = Medium{
	"cpd00035_e", "cpd00051_e", "cpd00132_e", "cpd00041_e", "cpd00084_e",
	"cpd00053_e", "cpd00023_e", "cpd00033_e", "cpd00119_e", "cpd00322_e",
	"cpd00107_e", "cpd00039_e", "cpd00060_e", "cpd00066_e", "cpd00129_e",
	"cpd00054_e", "cpd00161_e", "cpd00065_e", "cpd00069_e", "cpd00156_e",
	"cpd00027_e", "cpd00149_e", "cpd00030_e", "cpd00254_e", "cpd00971_e",
	"cpd00063_e", "cpd10515_e", "cpd00205_e", "cpd00099_e",
}

// Minimal is a glucose minimal environment.
var Minimal = Medium{
	"cpd00001_e", "cpd00065_e", "cpd00060_e", "cpd00322_e", "cpd00129_e",
	"cpd00156_e", "cpd00107_e", "cpd00084_e", "cpd00149_e", "cpd00099_e",
	"cpd10515_e", "cpd00030_e", "cpd00254_e", "cpd00063_e", "cpd00205_e",
	"cpd00009_e", "cpd00971_e", "cpd00242_e", "cpd00104_e", "cpd00644_e",
	"cpd00263_e", "cpd00082_e",
}

// File: internal/assembly/load.go
// Brief: Assembly directory loading.

package assembly

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

const ManifestFileName = "assembly.yaml"

type assemblyFile struct {
	Version   string         `json:"version"`
	Artifacts []artifactSpec `json:"artifacts"`
}

type artifactSpec struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	DisplayName string   `json:"displayName,omitempty"`
	Depends     []string `json:"depends,omitempty"`

	// stack
	Environment string `json:"environment,omitempty"`
	Template    string `json:"template,omitempty"`

	// asset-manifest
	File string `json:"file,omitempty"`

	// nested-assembly
	Directory string `json:"directory,omitempty"`
}

// Load reads an assembly directory: the assembly.yaml artifact index, every
// referenced asset manifest, and nested assemblies recursively. Both YAML and
// JSON manifests are accepted.
func Load(dir string) (*Assembly, error) {
	path := filepath.Join(dir, ManifestFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assembly manifest: %w", err)
	}
	var file assemblyFile
	if err := yaml.UnmarshalStrict(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	asm := &Assembly{Directory: dir, Version: file.Version}
	seen := map[string]struct{}{}
	for _, spec := range file.Artifacts {
		if spec.ID == "" {
			return nil, fmt.Errorf("%s: artifact without id", path)
		}
		if _, dup := seen[spec.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate artifact id %q", path, spec.ID)
		}
		seen[spec.ID] = struct{}{}

		art, err := buildArtifact(dir, spec)
		if err != nil {
			return nil, err
		}
		asm.Artifacts = append(asm.Artifacts, art)
	}
	return asm, nil
}

func buildArtifact(dir string, spec artifactSpec) (Artifact, error) {
	switch ArtifactKind(spec.Kind) {
	case KindStack:
		return &StackArtifact{
			ID:          spec.ID,
			DisplayName: spec.DisplayName,
			Environment: spec.Environment,
			Template:    spec.Template,
			Depends:     spec.Depends,
		}, nil
	case KindAssetManifest:
		manifest, err := loadAssetManifest(filepath.Join(dir, spec.File))
		if err != nil {
			return nil, fmt.Errorf("artifact %q: %w", spec.ID, err)
		}
		return &AssetManifestArtifact{
			ID:       spec.ID,
			File:     spec.File,
			Depends:  spec.Depends,
			Manifest: manifest,
		}, nil
	case KindNestedAssembly:
		nested, err := Load(filepath.Join(dir, spec.Directory))
		if err != nil {
			return nil, fmt.Errorf("nested assembly %q: %w", spec.ID, err)
		}
		return &NestedAssemblyArtifact{
			ID:          spec.ID,
			DisplayName: spec.DisplayName,
			Directory:   spec.Directory,
			Depends:     spec.Depends,
			Assembly:    nested,
		}, nil
	default:
		return &UnknownArtifact{ID: spec.ID, RawKind: spec.Kind, Depends: spec.Depends}, nil
	}
}

func loadAssetManifest(path string) (*AssetManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset manifest: %w", err)
	}
	var m AssetManifest
	if err := yaml.UnmarshalStrict(raw, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, a := range m.Assets {
		if a.ID == "" {
			return nil, fmt.Errorf("%s: asset entry without id", path)
		}
	}
	return &m, nil
}

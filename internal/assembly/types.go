// File: internal/assembly/types.go
// Brief: Artifact tree model for a synthesized application.

// Package assembly models the artifact tree produced by the synthesis step:
// stack artifacts, asset-manifest artifacts, and nested assemblies, each
// carrying a dependency list over sibling artifacts. The work-graph builder
// consumes this tree; nothing here knows about scheduling.
package assembly

import "sort"

type ArtifactKind string

const (
	KindStack          ArtifactKind = "stack"
	KindAssetManifest  ArtifactKind = "asset-manifest"
	KindNestedAssembly ArtifactKind = "nested-assembly"
)

// Artifact is implemented by every artifact kind. Consumers switch on the
// concrete type; kinds they do not recognize must be ignored.
type Artifact interface {
	ArtifactID() string
	Kind() ArtifactKind
	DependencyIDs() []string
}

type StackArtifact struct {
	ID          string
	DisplayName string
	Environment string
	Template    string
	Depends     []string
}

func (a *StackArtifact) ArtifactID() string      { return a.ID }
func (a *StackArtifact) Kind() ArtifactKind      { return KindStack }
func (a *StackArtifact) DependencyIDs() []string { return a.Depends }

type AssetManifestArtifact struct {
	ID      string
	File    string
	Depends []string

	Manifest *AssetManifest
}

func (a *AssetManifestArtifact) ArtifactID() string      { return a.ID }
func (a *AssetManifestArtifact) Kind() ArtifactKind      { return KindAssetManifest }
func (a *AssetManifestArtifact) DependencyIDs() []string { return a.Depends }

type NestedAssemblyArtifact struct {
	ID          string
	DisplayName string
	Directory   string
	Depends     []string

	Assembly *Assembly
}

func (a *NestedAssemblyArtifact) ArtifactID() string      { return a.ID }
func (a *NestedAssemblyArtifact) Kind() ArtifactKind      { return KindNestedAssembly }
func (a *NestedAssemblyArtifact) DependencyIDs() []string { return a.Depends }

// UnknownArtifact preserves entries whose kind this version does not
// understand, so that newer assemblies still load.
type UnknownArtifact struct {
	ID      string
	RawKind string
	Depends []string
}

func (a *UnknownArtifact) ArtifactID() string      { return a.ID }
func (a *UnknownArtifact) Kind() ArtifactKind      { return ArtifactKind(a.RawKind) }
func (a *UnknownArtifact) DependencyIDs() []string { return a.Depends }

// Assembly is the in-memory artifact tree. Artifacts keep the order they were
// declared in; dependency lists reference sibling artifact ids.
type Assembly struct {
	Directory string
	Version   string
	Artifacts []Artifact
}

// Stack returns the stack artifact with the given id, or nil.
func (a *Assembly) Stack(id string) *StackArtifact {
	for _, art := range a.Artifacts {
		if s, ok := art.(*StackArtifact); ok && s.ID == id {
			return s
		}
	}
	return nil
}

// StackDependencyIDs returns the ids of the stack artifacts the given stack
// depends on, sorted. Non-stack dependencies are ignored.
func (a *Assembly) StackDependencyIDs(s *StackArtifact) []string {
	var out []string
	for _, depID := range s.Depends {
		if a.Stack(depID) != nil {
			out = append(out, depID)
		}
	}
	sort.Strings(out)
	return out
}

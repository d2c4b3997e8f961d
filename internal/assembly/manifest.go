// File: internal/assembly/manifest.go
// Brief: Asset manifest format and content-addressed asset identity.

package assembly

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
)

type AssetType string

const (
	FileAsset        AssetType = "file"
	DockerImageAsset AssetType = "docker-image"
)

// AssetManifest describes the assets one manifest artifact wants built and
// published. The on-disk form is YAML or JSON.
type AssetManifest struct {
	Version string       `json:"version,omitempty"`
	Assets  []AssetEntry `json:"assets,omitempty"`
}

type AssetEntry struct {
	ID          string           `json:"id"`
	Type        AssetType        `json:"type"`
	DisplayName string           `json:"displayName,omitempty"`
	Source      AssetSource      `json:"source"`
	Destination AssetDestination `json:"destination"`
}

// AssetSource describes how to produce the deployable artifact. File assets
// use Path/Packaging; docker-image assets use Directory/DockerFile.
type AssetSource struct {
	Path       string            `json:"path,omitempty"`
	Packaging  string            `json:"packaging,omitempty"`
	Directory  string            `json:"directory,omitempty"`
	DockerFile string            `json:"dockerFile,omitempty"`
	BuildArgs  map[string]string `json:"buildArgs,omitempty"`
}

// AssetDestination describes where the built asset gets published.
type AssetDestination struct {
	BucketName string `json:"bucketName,omitempty"`
	ObjectKey  string `json:"objectKey,omitempty"`
	Repository string `json:"repository,omitempty"`
	ImageTag   string `json:"imageTag,omitempty"`
	Region     string `json:"region,omitempty"`
}

// ContentKey returns a short content-addressed key over the asset identity and
// its source description. Identical assets referenced from different
// manifests yield the same key, which is what lets the work-graph builder
// collapse them onto a single build node.
func (e AssetEntry) ContentKey() string {
	raw, err := json.Marshal(struct {
		ID     string      `json:"id"`
		Type   AssetType   `json:"type"`
		Source AssetSource `json:"source"`
	}{e.ID, e.Type, e.Source})
	if err != nil {
		// Marshalling plain structs of strings cannot fail.
		panic(fmt.Sprintf("assembly: marshal asset entry %q: %v", e.ID, err))
	}
	return digest.FromBytes(raw).Encoded()[:16]
}

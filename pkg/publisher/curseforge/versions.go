package curseforge

import (
	"fmt"
	"strings"

	"github.com/modpub/modpub/pkg/publisher"
)

// Known version-type slugs. Minecraft version types are matched by prefix
// because the platform creates one type per major version ("minecraft-1-20").
const (
	versionTypeMinecraftPrefix = "minecraft"
	versionTypeModLoader       = "modloader"
	versionTypeEnvironment     = "environment"
	versionTypeJava            = "java"
)

// VersionResolver resolves human version names to CurseForge's numeric
// version IDs. The catalog is shared across all version dimensions and
// partitioned by version type, so the type table has to be consulted first.
type VersionResolver struct {
	types    []GameVersionType
	versions []GameVersion
}

// NewVersionResolver builds a resolver over a fetched catalog.
func NewVersionResolver(types []GameVersionType, versions []GameVersion) *VersionResolver {
	return &VersionResolver{types: types, versions: versions}
}

// typeIDs returns the IDs of every version type matching slug.
func (r *VersionResolver) typeIDs(slug string) ([]int, error) {
	var ids []int
	for _, t := range r.types {
		if slug == versionTypeMinecraftPrefix {
			if strings.HasPrefix(t.Slug, versionTypeMinecraftPrefix) {
				ids = append(ids, t.ID)
			}
		} else if t.Slug == slug {
			ids = append(ids, t.ID)
		}
	}

	if len(ids) == 0 {
		return nil, &publisher.ResolutionError{Message: fmt.Sprintf("could not find version type: %s", slug)}
	}
	return ids, nil
}

// resolve finds the numeric ID of a version name within a version type.
// Names match case-insensitively.
func (r *VersionResolver) resolve(name, typeSlug string) (int, error) {
	typeIDs, err := r.typeIDs(typeSlug)
	if err != nil {
		return 0, err
	}

	for _, v := range r.versions {
		if !containsInt(typeIDs, v.GameVersionTypeID) {
			continue
		}
		if strings.EqualFold(v.Name, name) {
			return v.ID, nil
		}
	}

	return 0, &publisher.ResolutionError{Message: fmt.Sprintf("could not find game version: %s", name)}
}

// MinecraftVersion resolves a Minecraft version name.
func (r *VersionResolver) MinecraftVersion(name string) (int, error) {
	return r.resolve(name, versionTypeMinecraftPrefix)
}

// ModLoader resolves a mod loader name.
func (r *VersionResolver) ModLoader(name string) (int, error) {
	return r.resolve(name, versionTypeModLoader)
}

// Client resolves the client environment flag.
func (r *VersionResolver) Client() (int, error) {
	return r.resolve("client", versionTypeEnvironment)
}

// Server resolves the server environment flag.
func (r *VersionResolver) Server() (int, error) {
	return r.resolve("server", versionTypeEnvironment)
}

// JavaVersion resolves a Java major version.
func (r *VersionResolver) JavaVersion(version int) (int, error) {
	return r.resolve(fmt.Sprintf("Java %d", version), versionTypeJava)
}

func containsInt(values []int, v int) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

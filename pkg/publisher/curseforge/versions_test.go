package curseforge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpub/modpub/pkg/publisher"
)

func catalogResolver() *VersionResolver {
	types := []GameVersionType{
		{ID: 1, Name: "Minecraft 1.20", Slug: "minecraft-1-20"},
		{ID: 2, Name: "Minecraft 1.19", Slug: "minecraft-1-19"},
		{ID: 3, Name: "Mod Loaders", Slug: "modloader"},
		{ID: 4, Name: "Environment", Slug: "environment"},
		{ID: 5, Name: "Java Versions", Slug: "java"},
	}
	versions := []GameVersion{
		{ID: 100, GameVersionTypeID: 1, Name: "1.20.1", Slug: "1-20-1"},
		{ID: 101, GameVersionTypeID: 1, Name: "1.20", Slug: "1-20"},
		{ID: 102, GameVersionTypeID: 2, Name: "1.19.4", Slug: "1-19-4"},
		{ID: 200, GameVersionTypeID: 3, Name: "Fabric", Slug: "fabric"},
		{ID: 201, GameVersionTypeID: 3, Name: "Forge", Slug: "forge"},
		{ID: 300, GameVersionTypeID: 4, Name: "Client", Slug: "client"},
		{ID: 301, GameVersionTypeID: 4, Name: "Server", Slug: "server"},
		{ID: 400, GameVersionTypeID: 5, Name: "Java 17", Slug: "java-17"},
	}
	return NewVersionResolver(types, versions)
}

func TestVersionResolver(t *testing.T) {
	r := catalogResolver()

	t.Run("minecraft versions span all minecraft types", func(t *testing.T) {
		id, err := r.MinecraftVersion("1.20.1")
		require.NoError(t, err)
		assert.Equal(t, 100, id)

		id, err = r.MinecraftVersion("1.19.4")
		require.NoError(t, err)
		assert.Equal(t, 102, id)
	})

	t.Run("names match case-insensitively", func(t *testing.T) {
		id, err := r.ModLoader("fabric")
		require.NoError(t, err)
		assert.Equal(t, 200, id)
	})

	t.Run("environment flags", func(t *testing.T) {
		id, err := r.Client()
		require.NoError(t, err)
		assert.Equal(t, 300, id)

		id, err = r.Server()
		require.NoError(t, err)
		assert.Equal(t, 301, id)
	})

	t.Run("java versions", func(t *testing.T) {
		id, err := r.JavaVersion(17)
		require.NoError(t, err)
		assert.Equal(t, 400, id)
	})

	t.Run("unknown version fails resolution", func(t *testing.T) {
		_, err := r.MinecraftVersion("1.8.9")
		var resErr *publisher.ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "could not find game version: 1.8.9", resErr.Message)
	})

	t.Run("unknown type fails resolution", func(t *testing.T) {
		empty := NewVersionResolver(nil, nil)
		_, err := empty.ModLoader("fabric")
		var resErr *publisher.ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "could not find version type: modloader", resErr.Message)
	})
}

func TestRelationTypeName(t *testing.T) {
	for kind, want := range map[publisher.DependencyKind]string{
		publisher.DependencyRequired:     "requiredDependency",
		publisher.DependencyOptional:     "optionalDependency",
		publisher.DependencyIncompatible: "incompatible",
		publisher.DependencyEmbedded:     "embeddedLibrary",
	} {
		name, err := relationTypeName(kind)
		require.NoError(t, err)
		assert.Equal(t, want, name)
	}

	_, err := relationTypeName("suggests")
	require.Error(t, err)
}

func TestReleaseTypeName(t *testing.T) {
	assert.Equal(t, "release", releaseTypeName(publisher.ReleaseTypeStable))
	assert.Equal(t, "beta", releaseTypeName(publisher.ReleaseTypeBeta))
	assert.Equal(t, "alpha", releaseTypeName(publisher.ReleaseTypeAlpha))
}

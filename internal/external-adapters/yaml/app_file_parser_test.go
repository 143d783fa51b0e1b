package yaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAppFile = `
zapstore:
  android:
    name: Zapstore
    identifier: com.zapstore.app
    repository: https://github.com/zapstore/zapstore
    apkRegex: arm64-v8a
    npub: npub10r8xl2njyepcw2zwv3a6dyufj4e4ajx86hz6v4ehu4gnpupxxp7stjt2p8
    tags: android nostr
    images:
      - screenshot1.png
amethyst:
  android:
    repository: https://github.com/vitorpamplona/amethyst
    tags:
      - social
  ios:
    name: Amethyst iOS
`

func TestAppFileParser_Parse(t *testing.T) {
	apps, err := NewAppFileParser().Parse([]byte(sampleAppFile))
	require.NoError(t, err)
	require.Len(t, apps, 3)

	assert.Equal(t, "amethyst", apps[0].Alias)
	assert.Equal(t, "android", apps[0].Platform)
	assert.Equal(t, []string{"social"}, apps[0].Topics)
	assert.Equal(t, "ios", apps[1].Platform)

	z := apps[2]
	assert.Equal(t, "zapstore", z.Alias)
	assert.Equal(t, "Zapstore", z.Name)
	assert.Equal(t, "com.zapstore.app", z.Identifier)
	assert.Equal(t, "arm64-v8a", z.APKRegex)
	assert.Equal(t, []string{"android", "nostr"}, z.Topics)
	assert.Equal(t, []string{"screenshot1.png"}, z.Images)
}

func TestAppFileParser_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad regex", yaml: "a:\n  android:\n    apkRegex: '('\n"},
		{name: "repository not a url", yaml: "a:\n  android:\n    repository: not a url\n"},
		{name: "identifier with spaces", yaml: "a:\n  android:\n    identifier: com example\n"},
		{name: "npub garbage", yaml: "a:\n  android:\n    npub: hello\n"},
		{name: "tags wrong type", yaml: "a:\n  android:\n    tags: {x: 1}\n"},
		{name: "not a mapping", yaml: "- a\n- b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAppFileParser().Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestAppFileParser_EmptyEntry(t *testing.T) {
	apps, err := NewAppFileParser().Parse([]byte("bare:\n  android:\n"))
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "bare", apps[0].Alias)
}

func TestAppFileParser_EmptyFile(t *testing.T) {
	apps, err := NewAppFileParser().Parse([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, apps)
}

package services

import (
	"errors"
	"fmt"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// TagKey is a key from the fixed record tag vocabulary
type TagKey string

// Tag keys
const (
	TagIdentifier    TagKey = "d"
	TagName          TagKey = "name"
	TagRepository    TagKey = "repository"
	TagIcon          TagKey = "icon"
	TagImage         TagKey = "image"
	TagURL           TagKey = "url"
	TagPubKey        TagKey = "p"
	TagZap           TagKey = "zap"
	TagTopic         TagKey = "t"
	TagStars         TagKey = "stars"
	TagForks         TagKey = "forks"
	TagLicense       TagKey = "license"
	TagMediaType     TagKey = "m"
	TagDigest        TagKey = "x"
	TagSize          TagKey = "size"
	TagVersion       TagKey = "version"
	TagVersionCode   TagKey = "version_code"
	TagMinSDK        TagKey = "min_sdk_version"
	TagTargetSDK     TagKey = "target_sdk_version"
	TagSignatureHash TagKey = "apk_signature_hash"
	TagArch          TagKey = "arch"
	TagEvent         TagKey = "e"
	TagAddress       TagKey = "a"
)

var vocabulary = map[entities.Kind]map[TagKey]bool{
	entities.KindApp: keySet(
		TagIdentifier, TagName, TagRepository, TagIcon, TagImage, TagURL,
		TagPubKey, TagZap, TagTopic, TagStars, TagForks, TagLicense,
	),
	entities.KindFileMetadata: keySet(
		TagURL, TagMediaType, TagDigest, TagSize, TagVersion, TagVersionCode,
		TagMinSDK, TagTargetSDK, TagSignatureHash, TagArch, TagRepository,
		TagImage, TagPubKey, TagZap,
	),
	entities.KindRelease: keySet(TagIdentifier, TagURL, TagEvent, TagAddress),
}

func keySet(keys ...TagKey) map[TagKey]bool {
	m := make(map[TagKey]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// Allowed reports whether key belongs to the vocabulary of kind
func Allowed(kind entities.Kind, key TagKey) bool {
	return vocabulary[kind][key]
}

// TagBuilder appends typed tags for one record kind. The first invalid
// append is remembered and returned by Tags; later appends are ignored.
type TagBuilder struct {
	kind entities.Kind
	tags entities.Tags
	err  error
}

// NewTagBuilder creates a builder for the given record kind
func NewTagBuilder(kind entities.Kind) *TagBuilder {
	return &TagBuilder{kind: kind}
}

// Add appends a tag unconditionally. The first value must be non-empty.
func (b *TagBuilder) Add(key TagKey, values ...string) *TagBuilder {
	if b.err != nil {
		return b
	}
	if !Allowed(b.kind, key) {
		b.err = fmt.Errorf("%w: %q on %s", ErrInvalidTag, key, b.kind)
		return b
	}
	if len(values) == 0 || values[0] == "" {
		b.err = fmt.Errorf("%w: %q on %s", ErrEmptyTagValue, key, b.kind)
		return b
	}
	tag := make(entities.Tag, 0, len(values)+1)
	tag = append(tag, string(key))
	tag = append(tag, values...)
	b.tags = append(b.tags, tag)
	return b
}

// AddIf appends the tag only when guard holds
func (b *TagBuilder) AddIf(guard bool, key TagKey, values ...string) *TagBuilder {
	if !guard {
		return b
	}
	return b.Add(key, values...)
}

// AddOptional appends a single-valued tag when value is non-empty
func (b *TagBuilder) AddOptional(key TagKey, value string) *TagBuilder {
	return b.AddIf(value != "", key, value)
}

// AddEach appends one tag per non-empty value
func (b *TagBuilder) AddEach(key TagKey, values []string) *TagBuilder {
	for _, v := range values {
		b.AddOptional(key, v)
	}
	return b
}

// Tags returns the built sequence, or the first error encountered
func (b *TagBuilder) Tags() (entities.Tags, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tags, nil
}

// IsTagError reports whether err came from tag construction
func IsTagError(err error) bool {
	return errors.Is(err, ErrInvalidTag) || errors.Is(err, ErrEmptyTagValue)
}

package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var (
	NanoidSize = 32

	// Link ids end up in URLs customers may read back over the phone, so the
	// alphabet skips look-alike characters.
	linkAlphabet   = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

const LinkIDSize = 21

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// LinkID generates the id of a new access link.
func LinkID() string {
	return gonanoid.MustGenerate(linkAlphabet, LinkIDSize)
}

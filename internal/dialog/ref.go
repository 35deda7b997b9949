package dialog

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/m3rciful/postbot/internal/catalog"
)

// exampleRef is the callback payload of an example button: "<index>:<digest>".
// The digest binds the index to the post type and text the list was built
// from, so a button pressed after either changed no longer matches.
func exampleRef(postType string, idx int, text string) string {
	return strconv.Itoa(idx) + ":" + exampleDigest(postType, text)
}

func exampleDigest(postType, text string) string {
	h := fnv.New32a()
	h.Write([]byte(postType))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return fmt.Sprintf("%08x", h.Sum32())
}

// parseExampleRef splits a payload built by exampleRef.
func parseExampleRef(payload string) (int, string, error) {
	i, digest, ok := strings.Cut(payload, ":")
	if !ok || digest == "" {
		return 0, "", catalog.ErrIndexOutOfRange
	}
	idx, err := strconv.Atoi(i)
	if err != nil {
		return 0, "", catalog.ErrIndexOutOfRange
	}
	return idx, digest, nil
}

// resolveExample returns the example of postType at the referenced index, or
// ErrIndexOutOfRange when it is no longer the example the reference was made for.
func resolveExample(c catalog.Catalog, postType, payload string) (int, string, error) {
	idx, digest, err := parseExampleRef(payload)
	if err != nil {
		return 0, "", err
	}
	text, err := c.Example(postType, idx)
	if err != nil {
		return 0, "", err
	}
	if exampleDigest(postType, text) != digest {
		return 0, "", catalog.ErrIndexOutOfRange
	}
	return idx, text, nil
}

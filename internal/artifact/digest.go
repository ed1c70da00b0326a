package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DomainArtifact is the domain prefix for artifact fingerprints.
// The version suffix allows the hashing scheme to change later.
const DomainArtifact = "objscope/artifact/v1"

// Digest computes a content fingerprint of the file at path:
// SHA256(domain + 0x00 + bytes), hex encoded.
//
// Stored build and report records carry this digest so a history entry can
// be tied to the exact bytes it describes.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "digest")
	}
	defer f.Close()

	h := sha256.New()
	h.Write([]byte(DomainArtifact))
	h.Write([]byte{0x00})
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "digest %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

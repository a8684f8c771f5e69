package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var entropy = ulid.Monotonic(rand.Reader, 0)

// NewUlid returns a lowercase, time-sortable identifier for new
// instances.
func NewUlid() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}

var adjectives = []string{
	"quiet", "bright", "rapid", "steady", "gentle", "bold",
	"plain", "sharp", "mellow", "brisk", "sturdy", "light",
	"deep", "broad", "keen", "calm",
}

var nouns = []string{
	"harbor", "lantern", "compass", "anchor", "beacon",
	"quay", "mooring", "channel", "jetty", "buoy",
	"current", "tide", "keel", "mast", "rudder",
}

func RandIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

func GenerateRandName() (string, error) {
	ai, err := RandIndex(len(adjectives))
	if err != nil {
		return "", err
	}
	ni, err := RandIndex(len(nouns))
	if err != nil {
		return "", err
	}
	suffix, err := RandIndex(10000)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"%s-%s-%04d",
		adjectives[ai],
		nouns[ni],
		suffix,
	), nil
}

package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/tokenmig/pkg/namespace"
)

// Direction selects which layout files are moved into.
type Direction int

const (
	// Forward moves <source>/<rel> to <destination>/<token>/<rel>
	Forward Direction = iota

	// Reverse moves <source>/<token>/<rel> to <destination>/<rel>
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// ParseDirection parses "forward" or "reverse" (case-insensitive). An empty
// string is Forward.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return Forward, nil
	case "reverse":
		return Reverse, nil
	default:
		return Forward, fmt.Errorf("unknown direction %q (want forward or reverse)", s)
	}
}

// errNotInTokenTree is returned in reverse mode for files outside
// <source>/<token>/.
var errNotInTokenTree = errors.New("file is not below its token directory")

// targetPaths computes the old and new absolute paths for a file whose path
// relative to the source root is rel.
func targetPaths(direction Direction, source, destination, token, rel string) (oldPath, newPath string, err error) {
	oldPath = namespace.Join(source, rel)

	switch direction {
	case Reverse:
		prefix := "/" + token + "/"
		if !strings.HasPrefix(rel, prefix) {
			return "", "", errNotInTokenTree
		}
		newPath = namespace.Join(destination, rel[len(prefix)-1:])
	default:
		newPath = namespace.Join(destination, "/"+token+rel)
	}
	return oldPath, newPath, nil
}

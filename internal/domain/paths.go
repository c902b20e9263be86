package domain

import "strings"

// unknownSource is returned when a path has no segments at all.
const unknownSource = "unknown"

// recognizedRoots are directory names that start a project-relative path.
var recognizedRoots = map[string]struct{}{
	"components": {},
	"pages":      {},
	"app":        {},
	"src":        {},
}

// NormalizeSourcePath turns the absolute path of a compiled unit into the
// project-relative file recorded on annotated elements. The first matching
// rule wins:
//
//  1. the path after the last "/src/", prefixed with "src/"
//  2. the path after the last "/app/", prefixed with "app/"
//  3. the trailing segments starting at the innermost components, pages,
//     app or src directory
//  4. the bare filename
//
// The result is never empty.
func NormalizeSourcePath(path string) string {
	slashed := strings.ReplaceAll(path, "\\", "/")

	for _, marker := range []string{"src", "app"} {
		sep := "/" + marker + "/"
		if idx := strings.LastIndex(slashed, sep); idx >= 0 {
			return marker + "/" + slashed[idx+len(sep):]
		}
	}

	var segments []string

	for _, segment := range strings.Split(slashed, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	if len(segments) == 0 {
		return unknownSource
	}

	for i := len(segments) - 1; i >= 0; i-- {
		if _, ok := recognizedRoots[segments[i]]; ok {
			return strings.Join(segments[i:], "/")
		}
	}

	return segments[len(segments)-1]
}

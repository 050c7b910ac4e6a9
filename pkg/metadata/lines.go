package metadata

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// ReadLines reads a plain line-list file such as top_level.txt or
// dependency_links.txt. Lines are trimmed; blank lines and comment
// lines starting with "#" are dropped. The result is never nil.
func ReadLines(r io.Reader) ([]string, error) {
	lines := []string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read line list")
	}
	return lines, nil
}

package ingest

import (
	"bufio"
	"io"
	"os"
	"strings"

	"dialout/internal/phone"
)

// LoadSuppressionList reads a do-not-call list, one phone number per line
// (a header line containing "phone" is skipped). Numbers are normalized so
// list formatting does not have to match the candidate file.
func LoadSuppressionList(r io.Reader, n phone.Normalizer) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(strings.Trim(sc.Text(), ","))
		if first {
			first = false
			if strings.Contains(strings.ToLower(line), "phone") {
				continue
			}
		}
		if line == "" {
			continue
		}
		if e164, ok := n.Normalize(line); ok {
			out[e164] = struct{}{}
		} else {
			out[line] = struct{}{}
		}
	}
	return out, sc.Err()
}

// LoadSuppressionFile is LoadSuppressionList over a file path. A missing
// file yields an empty list, since the list is optional.
func LoadSuppressionFile(path string, n phone.Normalizer) (map[string]struct{}, error) {
	if path == "" {
		return map[string]struct{}{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadSuppressionList(f, n)
}

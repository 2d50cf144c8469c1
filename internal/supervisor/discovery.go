package supervisor

import (
	"os"
	"path/filepath"
	"strings"
)

// Pair is a matched (header, payload) stem inside a day directory.
type Pair struct {
	Stem        string
	HeaderName  string
	PayloadName string
}

// DiscoverPairs classifies every file in dayDir by extension and pairs
// .header files with .payload files sharing the same stem. Files with
// neither extension, and *.state cursor files, are ignored. A stem with
// only one side present is an orphan — the writer likely hasn't created
// both files yet — and is skipped, not reported as an error.
func DiscoverPairs(dayDir string) ([]Pair, error) {
	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	payloads := make(map[string]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)

		switch ext {
		case ".header":
			headers[stem] = name
		case ".payload":
			payloads[stem] = name
		case ".state":
			// cursor files are never data
		}
	}

	pairs := make([]Pair, 0, len(headers))
	for stem, headerName := range headers {
		payloadName, ok := payloads[stem]
		if !ok {
			continue // orphaned header, writer hasn't created the payload yet
		}
		pairs = append(pairs, Pair{
			Stem:        stem,
			HeaderName:  headerName,
			PayloadName: payloadName,
		})
	}

	return pairs, nil
}

package rarvol

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

var partVolumeRe = regexp.MustCompile(`(?i)(?P<prefix>.*?)(?P<sep>[_.-]?)(?:part)(?P<num>\d+)(?P<suffix>\.rar)$`)

// DiscoverSiblings finds the remaining volumes of a multi-volume set
// given the path to its first volume, using either the .partNN.rar
// naming scheme or the legacy .rar/.r00/.r01 scheme. It is a
// convenience only: the core parse/assemble path never calls this, so
// callers may always enumerate volume paths themselves instead.
func DiscoverSiblings(fs afero.Fs, first string) ([]string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	base := filepath.Base(first)
	dir := filepath.Dir(first)

	if m := partVolumeRe.FindStringSubmatch(base); m != nil {
		prefix, sep, num, suffix := m[1], m[2], m[3], m[4]
		width := len(num)
		var vols []string
		for i := 1; i < 10000; i++ {
			name := fmt.Sprintf("%s%spart%0*d%s", prefix, sep, width, i, suffix)
			p := filepath.Join(dir, name)
			if _, err := fs.Stat(p); err != nil {
				if i == 1 {
					return nil, fmt.Errorf("rarvol: first volume not found: %s", p)
				}
				break
			}
			vols = append(vols, p)
		}
		return vols, nil
	}

	if strings.HasSuffix(strings.ToLower(base), ".rar") {
		prefix := strings.TrimSuffix(first, filepath.Ext(first))
		var vols []string
		if _, err := fs.Stat(first); err != nil {
			return nil, err
		}
		vols = append(vols, first)
		for i := 0; i < 1000; i++ {
			name := fmt.Sprintf("%s.r%02d", prefix, i)
			p := filepath.Join(dir, filepath.Base(name))
			if _, err := fs.Stat(p); err != nil {
				break
			}
			vols = append(vols, p)
		}
		return vols, nil
	}

	return []string{first}, nil
}

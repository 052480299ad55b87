package filter

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// blockFile is the on-disk form of a blocklist:
//
//	domains:
//	  - companycheck.co.uk
//	  - endole.co.uk
type blockFile struct {
	Domains []string `yaml:"domains"`
}

// LoadBlocklistFile reads the domains stored at path. A missing file yields
// no domains and no error.
func LoadBlocklistFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "filter: read blocklist %s", path)
	}

	var f blockFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "filter: parse blocklist %s", path)
	}
	return cleanDomains(f.Domains), nil
}

// SaveBlocklistFile writes domains to path, normalized and sorted.
func SaveBlocklistFile(path string, domains []string) error {
	cleaned := cleanDomains(domains)
	sort.Strings(cleaned)

	data, err := yaml.Marshal(blockFile{Domains: cleaned})
	if err != nil {
		return eris.Wrap(err, "filter: encode blocklist")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "filter: create blocklist dir %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "filter: write blocklist %s", path)
	}
	return nil
}

// ResolveBlocklist merges the default list, configured domains and the
// domains stored in file into one deduplicated list.
func ResolveBlocklist(configured []string, file string) ([]string, error) {
	all := append([]string{}, DefaultBlocklist...)
	all = append(all, configured...)
	if file != "" {
		fromFile, err := LoadBlocklistFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, fromFile...)
	}
	return cleanDomains(all), nil
}

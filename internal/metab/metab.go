// Package metab parses metabolite list files for the simulator.
//
// A list file holds one metabolite name per line; blank lines and lines
// starting with '#' are ignored. Inline comments after a name are also
// stripped.
package metab

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// wellKnown is the set of metabolite names the stock simulator ships spin
// systems for. Names outside this set are legal (custom spin-system
// files exist) but worth a warning.
var wellKnown = map[string]bool{
	"Ala": true, "Asc": true, "Asp": true, "Cr": true, "GABA": true,
	"Glc": true, "Gln": true, "Glu": true, "GPC": true, "GSH": true,
	"Gly": true, "H2O": true, "Ins": true, "Lac": true, "NAA": true,
	"NAAG": true, "PCh": true, "PCr": true, "PE": true, "Scyllo": true,
	"Ser": true, "Tau": true,
}

// namePattern is what a metabolite name may look like: letters, digits,
// and the separators spin-system files use.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+-]*$`)

// List is a parsed metabolite list.
type List struct {
	// Names in file order, duplicates removed.
	Names []string

	// Unknown holds names not in the stock spin-system set, in file
	// order. These are warnings, not errors.
	Unknown []string
}

// ParseNames validates a list of metabolite names given directly, e.g.
// from a flag or an API call, applying the same rules as ParseFile.
func ParseNames(names []string) (*List, error) {
	list := &List{}
	seen := make(map[string]bool)

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if !namePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid metabolite name %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		list.Names = append(list.Names, name)
		if !wellKnown[name] {
			list.Unknown = append(list.Unknown, name)
		}
	}

	if len(list.Names) == 0 {
		return nil, fmt.Errorf("no metabolites listed")
	}
	return list, nil
}

// WriteFile writes the list to path, one name per line, in the format
// ParseFile reads and the simulator expects.
func (l *List) WriteFile(path string) error {
	data := strings.Join(l.Names, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("write metabolite list: %w", err)
	}
	return nil
}

// ParseFile reads and parses a metabolite list file.
func ParseFile(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metabolite list: %w", err)
	}
	defer f.Close()

	list := &List{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}

		if !namePattern.MatchString(name) {
			return nil, fmt.Errorf("%s:%d: invalid metabolite name %q", path, lineNo, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		list.Names = append(list.Names, name)
		if !wellKnown[name] {
			list.Unknown = append(list.Unknown, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metabolite list: %w", err)
	}

	if len(list.Names) == 0 {
		return nil, fmt.Errorf("%s: no metabolites listed", path)
	}
	return list, nil
}

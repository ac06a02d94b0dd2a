package docs

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

type zipEntry struct {
	name string
	file *types.File
}

// BuildZIP writes the files of period into w, one folder per client named
// after its legal name. Whole-year periods add a month folder per file.
// Clients without matching files get no folder. Returns the number of files
// written, or ErrNoFiles when none matched.
func BuildZIP(w io.Writer, clients []*types.Client, files []*types.File, period types.Period) (int, error) {
	if err := period.Validate(); err != nil {
		return 0, err
	}

	byClient := make(map[string][]*types.File)
	for _, f := range files {
		if period.Contains(f.Year, f.Month) {
			byClient[f.ClientID] = append(byClient[f.ClientID], f)
		}
	}

	var entries []zipEntry
	used := make(map[string]int)
	folders := make(map[string]int)
	for _, c := range clients {
		matched := byClient[c.ID]
		if len(matched) == 0 {
			continue
		}
		folder := uniqueName(folders, folderName(c), false)
		for _, f := range matched {
			dir := folder
			if period.WholeYear() {
				dir = path.Join(folder, monthFolder(f.Month))
			}
			name := uniqueName(used, path.Join(dir, safeSegment(f.Name, "archivo.pdf")), true)
			entries = append(entries, zipEntry{name: name, file: f})
		}
	}
	if len(entries) == 0 {
		return 0, ErrNoFiles
	}

	zw := zip.NewWriter(w)
	for _, e := range entries {
		data, err := Decode(e.file.Data)
		if err != nil {
			zw.Close()
			return 0, fmt.Errorf("file %s: %w", e.file.ID, err)
		}
		fw, err := zw.Create(e.name)
		if err != nil {
			zw.Close()
			return 0, fmt.Errorf("adding %s: %w", e.name, err)
		}
		if _, err := fw.Write(data); err != nil {
			zw.Close()
			return 0, fmt.Errorf("writing %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finishing archive: %w", err)
	}
	return len(entries), nil
}

// ZIPName names the archive for user and period.
func ZIPName(user string, period types.Period) string {
	user = safeSegment(user, "usuario")
	if period.WholeYear() {
		return fmt.Sprintf("Clientes_%s_Gestion_%d.zip", user, period.Year)
	}
	return fmt.Sprintf("Clientes_%s_%s_%d.zip", user, monthFolder(*period.Month), period.Year)
}

func folderName(c *types.Client) string {
	if name := safeSegment(c.LegalName, ""); name != "" {
		return name
	}
	return safeSegment(c.TaxID, c.ID)
}

// safeSegment makes s usable as one path element.
func safeSegment(s, fallback string) string {
	s = strings.TrimSpace(strings.NewReplacer("/", "-", "\\", "-").Replace(s))
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}

func monthFolder(m int) string {
	if m < 0 || m > 11 {
		return fmt.Sprintf("%02d", m+1)
	}
	return types.MonthNames[m]
}

// uniqueName returns p, or p with a " (n)" suffix when p was already handed
// out. With keepExt the suffix goes before the extension.
func uniqueName(used map[string]int, p string, keepExt bool) string {
	n := used[p]
	used[p] = n + 1
	if n == 0 {
		return p
	}
	base, ext := p, ""
	if keepExt {
		ext = path.Ext(p)
		base = strings.TrimSuffix(p, ext)
	}
	for {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if used[candidate] == 0 {
			used[candidate] = 1
			return candidate
		}
		n++
	}
}

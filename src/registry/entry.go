package registry

import (
	"encoding/json"
	"strings"

	"github.com/juju/errors"
)

// Entry is the off-chain metadata published for one realm.
type Entry struct {
	RealmID          string `json:"realmId"`
	Symbol           string `json:"symbol"`
	DisplayName      string `json:"displayName"`
	OGImage          string `json:"ogImage,omitempty"`
	Category         string `json:"category,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`
	Website          string `json:"website,omitempty"`
	Twitter          string `json:"twitter,omitempty"`
	Discord          string `json:"discord,omitempty"`
	ProgramID        string `json:"programId"`
}

// ParseEntries decodes the published JSON list. Entries without a realm id
// are dropped; fields of the wrong type read as empty.
func ParseEntries(body []byte, imageBase string) ([]Entry, error) {
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.NotValidf("registry payload: %v", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		id := str(r, "realmId")
		if id == "" {
			continue
		}
		symbol := str(r, "symbol")
		name := str(r, "displayName")
		if name == "" {
			name = symbol
		}
		out = append(out, Entry{
			RealmID:          id,
			Symbol:           symbol,
			DisplayName:      name,
			OGImage:          ResolveImageURL(imageBase, str(r, "ogImage")),
			Category:         str(r, "category"),
			ShortDescription: str(r, "shortDescription"),
			Website:          str(r, "website"),
			Twitter:          str(r, "twitter"),
			Discord:          str(r, "discord"),
			ProgramID:        str(r, "programId"),
		})
	}
	return out, nil
}

func str(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}

// ResolveImageURL keeps absolute http(s) URLs and roots "/path" at base.
func ResolveImageURL(base, img string) string {
	switch {
	case img == "":
		return ""
	case strings.HasPrefix(img, "http"):
		return img
	case strings.HasPrefix(img, "/"):
		return strings.TrimRight(base, "/") + img
	default:
		return img
	}
}

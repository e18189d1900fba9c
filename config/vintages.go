package config

import "os"

// Vintage represents one dated snapshot of the DVF transaction source.
type Vintage struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DefaultVintages lists the supported data vintages, newest first. The
// loader tries them in order and stops at the first sufficient one.
var DefaultVintages = []Vintage{
	{
		Name: "2024",
		URL:  "https://files.data.gouv.fr/geo-dvf/latest/csv/2024/full.csv",
	},
	{
		Name: "2023",
		URL:  "https://files.data.gouv.fr/geo-dvf/latest/csv/2023/full.csv",
	},
	// Add more vintages here as needed
}

// GetVintages returns the configured vintages, honouring the
// DVF_PRIMARY_URL / DVF_FALLBACK_URL overrides.
func GetVintages() []Vintage {
	vintages := make([]Vintage, len(DefaultVintages))
	copy(vintages, DefaultVintages)

	if url := os.Getenv("DVF_PRIMARY_URL"); url != "" && len(vintages) > 0 {
		vintages[0].URL = url
	}
	if url := os.Getenv("DVF_FALLBACK_URL"); url != "" && len(vintages) > 1 {
		vintages[1].URL = url
	}
	return vintages
}

// GetVintageByName returns a vintage configuration by name.
func GetVintageByName(name string) *Vintage {
	for _, v := range GetVintages() {
		if v.Name == name {
			return &v
		}
	}
	return nil
}

// GetVintageNames returns the names of all configured vintages.
func GetVintageNames() []string {
	vintages := GetVintages()
	names := make([]string, len(vintages))
	for i, v := range vintages {
		names[i] = v.Name
	}
	return names
}

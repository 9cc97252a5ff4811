package store

// Mess is one dining hall and the floors that report waste for it
type Mess struct {
	Name        string   `mapstructure:"name"`
	DisplayName string   `mapstructure:"display_name"`
	Floors      []string `mapstructure:"floors"`
}

// DefaultMesses returns the two halls of the campus
func DefaultMesses() []Mess {
	return []Mess{
		{Name: "mess1", DisplayName: "Food Sutra", Floors: []string{"Ground", "First"}},
		{Name: "mess2", DisplayName: "Shakti", Floors: []string{"Second", "Third"}},
	}
}

// MessNames returns the Name of each mess in order
func MessNames(messes []Mess) []string {
	out := make([]string, len(messes))
	for i, m := range messes {
		out[i] = m.Name
	}
	return out
}

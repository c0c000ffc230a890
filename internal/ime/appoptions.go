package ime

import (
	"maps"
	"slices"
)

// AppOptions maps engine option names to the value forced for one
// application.
type AppOptions map[string]bool

// Names returns the option names in lexical order.
func (o AppOptions) Names() []string {
	return slices.Sorted(maps.Keys(o))
}

// AppOptionsByApp maps an application identifier to its options.
type AppOptionsByApp map[string]AppOptions

// LoadAppOptions reads app_options/<app>/<option> from cfg. Entries that are
// not booleans are skipped; an application with no valid entries still gets
// an empty set.
func LoadAppOptions(cfg ConfigReader) AppOptionsByApp {
	result := make(AppOptionsByApp)
	for _, app := range cfg.MapKeys("app_options") {
		options := make(AppOptions)
		prefix := "app_options/" + app
		for _, name := range cfg.MapKeys(prefix) {
			if v, ok := cfg.GetBool(prefix + "/" + name); ok {
				options[name] = v
			}
		}
		result[app] = options
	}
	return result
}

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ApplyPatch applies the "patch" map of a custom YAML document. Each key is
// a slash-separated path whose node is replaced by the patch value.
//
//	patch:
//	  style/color_scheme: lost
//	  "app_options/notepad.exe/ascii_mode": true
func (s *Store) ApplyPatch(data []byte) error {
	custom, err := ParseStore(s.name+".custom", data)
	if err != nil {
		return err
	}
	patch := custom.lookup("patch")
	if patch == nil {
		return nil
	}
	if patch.Kind != yaml.MappingNode {
		return fmt.Errorf("patch must be a map")
	}
	for i := 0; i+1 < len(patch.Content); i += 2 {
		key := patch.Content[i].Value
		if err := s.Set(key, patch.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

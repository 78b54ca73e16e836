package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads file into config, which must be a pointer to a struct. The current field values
// of config are the defaults. Environment variables override both, with dots replaced by
// underscores: HTTP_PORT sets http.port.
func Load(file string, config any) error {
	v := viper.New()

	defaults, err := flatten("", config)
	if err != nil {
		return fmt.Errorf("mapstructure: %w", err)
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigFile(file)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config from file %s: %w", file, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}

// flatten turns a struct into dotted keys so every field is known to viper, including
// fields the config file leaves out.
func flatten(prefix string, in any) (map[string]any, error) {
	m := make(map[string]any)
	if err := mapstructure.Decode(in, &m); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(m))
	for k, val := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}

		if isStruct(val) {
			nested, err := flatten(key, val)
			if err != nil {
				return nil, err
			}
			for nk, nv := range nested {
				out[nk] = nv
			}
			continue
		}

		if nested, ok := val.(map[string]any); ok {
			sub, err := flatten(key, nested)
			if err != nil {
				return nil, err
			}
			for nk, nv := range sub {
				out[nk] = nv
			}
			continue
		}

		out[key] = val
	}

	return out, nil
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

package configlocator

import (
	"fmt"

	"github.com/compose-network/intersection-coordinator/x/coordinator"
)

const (
	// ParamsSuffix marks coordinator parameter files.
	ParamsSuffix  = ".coordinator.yaml"
	ParamsPattern = "**/*" + ParamsSuffix
	// DefaultParamsKey names the file applied to every vehicle.
	DefaultParamsKey = "default"
)

// LoadCoordinatorParams overlays "default.coordinator.yaml" and then "<vehicle>.coordinator.yaml"
// onto base. Keys absent from a file keep their previous value. It returns the files applied.
func LoadCoordinatorParams(sources []string, vehicle string, base coordinator.Params) (coordinator.Params, []string, error) {
	files, err := LookEverywhere(ParamsPattern, sources)
	if err != nil {
		return base, nil, err
	}
	index, err := IndexByKey(files, BaseKey(ParamsSuffix))
	if err != nil {
		return base, nil, err
	}

	params := base
	var applied []string
	for _, key := range []string{DefaultParamsKey, vehicle} {
		f, ok := index[key]
		if !ok || key == "" {
			continue
		}
		next := params
		if err := Interpret(f, &next); err != nil {
			return base, applied, fmt.Errorf("load coordinator params: %w", err)
		}
		params = next
		applied = append(applied, f.Path)
		if key == vehicle {
			break
		}
	}
	return params, applied, nil
}

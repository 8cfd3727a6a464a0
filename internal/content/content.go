// Package content loads the sign table and avatar rig shared by the hosts.
package content

import (
	"fmt"
	"log/slog"

	"github.com/synapz-learn/signavatar/engine/loader"
	"github.com/synapz-learn/signavatar/engine/pose"
	"github.com/synapz-learn/signavatar/engine/signs"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// LoadTable returns the embedded table, with the file at path layered on top when path is set.
func LoadTable(path string) (signs.Table, error) {
	base := signs.Default()
	if path == "" {
		return base, nil
	}
	overlay, err := signs.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load sign table: %w", err)
	}
	return signs.Merge(base, overlay), nil
}

// LoadRig returns the built-in Mixamo rig when path is empty, otherwise the rig of the model
// file with its signing joints returned to rest, since sign limits are measured from zero.
// A model that fails to load is logged and yields a nil rig: the avatar is absent and
// playback reports every instruction as a missing joint.
func LoadRig(path string, logger *slog.Logger) skeleton.Skeleton {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return skeleton.NewMixamoRig()
	}

	rig, err := loader.NewLoader(loader.BackendTypeGLTF, loader.WithLogger(logger)).Load(path)
	if err != nil {
		logger.Error("avatar model failed to load", "path", path, "error", err)
		return nil
	}
	reset := pose.NewResetter().Reset(rig)
	rig.Changed()
	logger.Info("avatar model loaded", "path", path, "rig", rig.Name(), "joints", rig.Len(), "reset", reset)
	return rig
}

package portal

import (
	"errors"
	"fmt"
	"math"

	"Portal3D/internal/renderer"
	"Portal3D/internal/scene"

	"go.uber.org/multierr"
)

// Node names expected at the top level of the loaded scene.
const (
	NodeBaked       = "merge"
	NodePoleLightA  = "poleLightA"
	NodePoleLightB  = "poleLightB"
	NodePortalLight = "portalLight"
)

// SceneRotationY is the yaw applied to the loaded hierarchy.
const SceneRotationY = -math.Pi * 0.9

var ErrMissingNode = errors.New("missing scene node")

// Assemble binds the bank's materials to the named nodes of loaded, rotates it and adds it to root.
// If any named node is missing nothing is changed and every missing name is reported.
func Assemble(root, loaded *scene.Node, bank *Bank) error {
	if root == nil || loaded == nil || bank == nil {
		return errors.New("assemble: nil root, scene or bank")
	}

	bindings := []struct {
		name     string
		material *renderer.Material
	}{
		{NodeBaked, bank.Baked},
		{NodePoleLightA, bank.PoleLight},
		{NodePoleLightB, bank.PoleLight},
		{NodePortalLight, bank.PortalLight},
	}

	nodes := make([]*scene.Node, len(bindings))
	var err error
	for i, b := range bindings {
		nodes[i] = loaded.FindChild(b.name)
		if nodes[i] == nil {
			err = multierr.Append(err, fmt.Errorf("%w: %q", ErrMissingNode, b.name))
		}
	}
	if err != nil {
		return err
	}

	for i, b := range bindings {
		nodes[i].Material = b.material
	}
	loaded.SetRotationY(SceneRotationY)
	root.Add(loaded)
	return nil
}

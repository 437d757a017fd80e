package sysconf

import (
	"github.com/choopsit/toolz/pkg/confpatch"
	"github.com/choopsit/toolz/pkg/types"
)

const flatVolumes = "flat-volumes = no"

var (
	redshiftBlock = []string{"", "[redshift]", "allowed=true", "system=false", "users="}
	lightdmLines  = []string{"[Seat:*]", "greeter-hide-users=false", "[Greeter]", "draw-user-backgrounds=true"}
)

// PulseAudio stops new streams from jumping to full volume
func (r *Rules) PulseAudio() (types.State, error) {
	done, err := r.patch.Contains(r.Paths.PulseDaemon, confpatch.HasPrefix(flatVolumes))
	if err != nil {
		return types.StateFailed, err
	}
	if done {
		return types.StateInSync, nil
	}
	return r.patch.ReplaceMatching(r.Paths.PulseDaemon, confpatch.Contains("flat-volumes"),
		func(string) string { return flatVolumes })
}

// Redshift lets redshift query geoclue for the location
func (r *Rules) Redshift() (types.State, error) {
	return r.patch.EnsureBlock(r.Paths.Geoclue, confpatch.Contains("redshift"), redshiftBlock)
}

// LightDM lists user names on the greeter
func (r *Rules) LightDM() (types.State, error) {
	if err := r.patch.Touch(r.Paths.LightDM, 0644); err != nil {
		return types.StateFailed, err
	}
	return r.patch.EnsureEach(r.Paths.LightDM, lightdmLines)
}

package env

import "gatekeep/internal/gate"

func gateSpec() gate.EnvSpec {
	return gate.EnvSpec{Channel: "stable", Profile: gate.ProfileDefault}
}
